// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package theme

import "strings"

// Mode is the user's theme preference.
type Mode string

const (
	ModeLight  Mode = "light"
	ModeDark   Mode = "dark"
	ModeSystem Mode = "system"
)

// Modes lists every preference in display order.
var Modes = []Mode{ModeLight, ModeDark, ModeSystem}

// Valid reports whether m is one of the three recognised tags.
func (m Mode) Valid() bool {
	switch m {
	case ModeLight, ModeDark, ModeSystem:
		return true
	}
	return false
}

// Label is the human-readable name shown in pickers.
func (m Mode) Label() string {
	switch m {
	case ModeLight:
		return "Light"
	case ModeDark:
		return "Dark"
	case ModeSystem:
		return "System"
	}
	return string(m)
}

// Description is the one-line hint shown under each option.
func (m Mode) Description() string {
	switch m {
	case ModeLight:
		return "Always use light theme"
	case ModeDark:
		return "Always use dark theme"
	case ModeSystem:
		return "Follow system setting"
	}
	return ""
}

// ParseMode accepts a stored or typed tag. Matching is case-insensitive on
// input from users; stored values are written lower-case.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// SchemeDark is the only OS report that resolves to a dark palette.
const SchemeDark = "dark"

// Resolve returns whether mode renders dark given the OS scheme.
func Resolve(mode Mode, osScheme string) bool {
	switch mode {
	case ModeDark:
		return true
	case ModeLight:
		return false
	default:
		return osScheme == SchemeDark
	}
}
