// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the Bubble Tea root model of the chat client.
//
// The model owns no domain state. It renders snapshots taken from the theme,
// auth, roster and transport controllers and from the chat directory, and
// runs every blocking call in a tea.Cmd. Attach forwards controller
// notifications into a running program.
//
// Screens:
//   - Login and Register: credential forms validated before submit
//   - Chats: search, category tabs and the chat list
//   - Members: roster picker that starts a direct or group chat
//   - Conversation: message history and composer
//   - Settings: theme selection and sign out
package app
