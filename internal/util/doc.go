// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatrevamp.
//
// File Operations:
//   - AtomicWriteFile: crash-safe file replacement with fsync
//
// Display Helpers:
//   - Truncate, PadRight: column-aware string fitting for list rows
//   - Initial: avatar letter for a display name
package util
