// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces the chat screens are built
from.

# Display Components

Header (header.go) - Screen title, connection status and theme badge.
Tabs (tabs.go) - Category tabs with unread counts.
ChatList (chatlist.go) - Scrollable chat rows with presence, preview and time.
MessageView (message.go) - Message bubbles with Markdown bodies via Glamour.
Shortcuts (statusbar.go) - Key hint bar.

# Interactive Components

MemberPicker (memberpicker.go) - Searchable, multi-select roster list.
ThemePicker (themepicker.go) - The light/dark/system selection modal.
Spinner (spinner.go) - Loading indicator built on bubbles/spinner.

All components take a *styles.Theme and render plain strings; the app
package owns key handling and state.
*/
package components
