// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a self-contained backend for local development and
// integration tests. It serves the REST auth and roster endpoints the client
// expects under /api and relays chat over a websocket at /ws.
//
// All state is in memory and lost on restart.
package devserver
