// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// Tabs renders the category tabs. unread holds the number of chats with
// unread messages per category; zero counts are not shown.
func Tabs(t *styles.Theme, active model.Category, unread map[model.Category]int) string {
	cells := make([]string, 0, len(model.Categories))
	for _, cat := range model.Categories {
		label := cat.Label()
		if n := unread[cat]; n > 0 {
			label += " " + strconv.Itoa(n)
		}
		if cat == active {
			cells = append(cells, t.TabActive.Render(label))
		} else {
			cells = append(cells, t.TabInactive.Render(label))
		}
	}
	return t.TabBar.Render(lipgloss.JoinHorizontal(lipgloss.Bottom, cells...))
}

// NextCategory returns the tab after c, wrapping around. delta may be
// negative.
func NextCategory(c model.Category, delta int) model.Category {
	n := len(model.Categories)
	for i, cat := range model.Categories {
		if cat == c {
			return model.Categories[((i+delta)%n+n)%n]
		}
	}
	return model.CategoryAll
}
