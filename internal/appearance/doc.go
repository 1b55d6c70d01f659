// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package appearance reports the operating system's light/dark scheme.
//
// Terminals expose no change notification, so two sources exist:
//
//   - Terminal: a one-shot probe of the terminal background via termenv
//   - Watcher: follows an appearance file holding "light" or "dark",
//     which desktop hooks (e.g. a darkman script) rewrite on change
//
// Both report plain strings; any value other than "dark" means light.
package appearance
