// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles turns a resolved theme snapshot into Lip Gloss styles.

Every screen renders with a *Theme built by New from the theme controller's
current snapshot. When the controller reports a new snapshot the UI builds a
fresh Theme; nothing in this package holds global color state.

# Layout

Theme also tracks the terminal size and exposes a coarse LayoutMode so
screens can drop secondary columns on narrow terminals:

	th := styles.New(ctrl.Snapshot())
	th.SetSize(msg.Width, msg.Height)
	if th.GetLayoutMode() == styles.LayoutNarrow {
		// hide timestamps
	}

# Indicators

Indicators holds the presence, unread and selection glyphs, with an ASCII
set for terminals without Unicode support.
*/
package styles
