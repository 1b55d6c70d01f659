// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// ThemePicker is the appearance modal: one row per theme.Mode with the
// active mode checked.
type ThemePicker struct {
	cursor int
}

// NewThemePicker creates a picker with the cursor on current.
func NewThemePicker(current theme.Mode) *ThemePicker {
	p := &ThemePicker{}
	p.Reset(current)
	return p
}

// Reset moves the cursor to current.
func (p *ThemePicker) Reset(current theme.Mode) {
	p.cursor = 0
	for i, m := range theme.Modes {
		if m == current {
			p.cursor = i
		}
	}
}

// Move moves the cursor by delta, wrapping around.
func (p *ThemePicker) Move(delta int) {
	n := len(theme.Modes)
	p.cursor = ((p.cursor+delta)%n + n) % n
}

// Choice returns the mode under the cursor.
func (p *ThemePicker) Choice() theme.Mode {
	return theme.Modes[p.cursor]
}

// View renders the modal. active is the mode currently in effect.
func (p *ThemePicker) View(t *styles.Theme, active theme.Mode) string {
	var b strings.Builder
	b.WriteString(t.ModalTitle.Render("Choose Theme"))
	b.WriteString("\n")
	for i, m := range theme.Modes {
		mark := "  "
		if m == active {
			mark = t.OptionCheckmark.Render(styles.Indicators.Selected) + " "
		}
		row := mark + m.Label()
		if i == p.cursor {
			b.WriteString(t.OptionSelected.Render(styles.Indicators.Cursor + " " + row))
		} else {
			b.WriteString(t.Option.Render("  " + row))
		}
		b.WriteString("\n")
		b.WriteString(t.OptionDesc.Render(m.Description()))
		b.WriteString("\n")
	}
	return t.Modal.Render(strings.TrimRight(b.String(), "\n"))
}
