// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "os"

// IndicatorSet is the glyphs used for state markers.
type IndicatorSet struct {
	Online   string
	Offline  string
	Pinned   string
	Selected string
	Checked  string
	Cursor   string
	Unread   string
}

var unicodeIndicators = IndicatorSet{
	Online:   "●",
	Offline:  "○",
	Pinned:   "📌",
	Selected: "✓",
	Checked:  "[x]",
	Cursor:   "›",
	Unread:   "•",
}

var asciiIndicators = IndicatorSet{
	Online:   "*",
	Offline:  "o",
	Pinned:   "^",
	Selected: "v",
	Checked:  "[x]",
	Cursor:   ">",
	Unread:   "*",
}

// Indicators is the set for the current terminal. CHATREVAMP_ASCII=1 forces
// the ASCII set.
var Indicators = pickIndicators(os.Getenv("CHATREVAMP_ASCII"))

func pickIndicators(ascii string) IndicatorSet {
	if ascii == "1" || ascii == "true" {
		return asciiIndicators
	}
	return unicodeIndicators
}
