// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the zerolog logger shared by chatrevamp components.
//
// The terminal belongs to the TUI, so logs go to a JSON-lines file
// (~/.chatrevamp/chatrevamp.log by default). Components receive a
// zerolog.Logger at construction and add their own "component" field.
package logging
