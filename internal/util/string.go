// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to strings cut by Truncate.
const Ellipsis = "…"

// Truncate cuts s to at most width terminal columns, appending Ellipsis when
// anything was removed. Wide (CJK, emoji) runes count as two columns.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, Ellipsis)
}

// PadRight pads s with spaces to exactly width columns, truncating first if
// it is too wide.
func PadRight(s string, width int) string {
	s = Truncate(s, width)
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// Initial returns the first rune of name upper-cased, or "?" for blank names.
// Used for avatar badges.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
