// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the signed-in session.
//
// The Controller restores the token and user record from storage at startup,
// signs in or registers through the REST backend, and clears everything on
// logout. IsAuthenticated is true only while both a user and a token are held.
// Other components (the roster cache, the chat transport session) subscribe to
// state changes instead of polling.
//
// Form validation for the login and register screens lives in validate.go so
// the TUI and the CLI reject the same input before any request is sent.
package auth
