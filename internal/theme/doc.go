// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package theme resolves the user's light/dark/system preference to a concrete
// palette.
//
// The Controller owns the preference. It is loaded from storage once at
// startup (Initialize), changed by the user (SetTheme), and combined with the
// scheme reported by the operating system (SetSystemScheme) to produce a
// Snapshot. A Snapshot is a pure function of (Mode, OS scheme):
//
//	ModeDark   -> dark
//	ModeLight  -> light
//	ModeSystem -> dark iff the OS reports "dark"
//
// Storage failures never reach the caller. A failed read leaves ModeSystem in
// place; a failed write keeps the new mode in memory only. Both are logged.
package theme
