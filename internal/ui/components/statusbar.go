// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// Shortcuts renders key hints from bindings, dropping hints from the end
// until they fit width. Disabled bindings are skipped.
func Shortcuts(t *styles.Theme, width int, bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}

	sep := t.ShortcutDesc.Render("  ")
	line := strings.Join(parts, sep)
	for len(parts) > 1 && width > 0 && lipgloss.Width(line)+2 > width {
		parts = parts[:len(parts)-1]
		line = strings.Join(parts, sep)
	}
	return t.StatusBar.Width(width).Render(line)
}
