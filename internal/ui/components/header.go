// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// ConnStatus is the chat connection state shown in the header.
type ConnStatus int

const (
	ConnOffline ConnStatus = iota
	ConnConnecting
	ConnOnline
)

// String returns the display string for the status.
func (s ConnStatus) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnOnline:
		return "online"
	default:
		return "offline"
	}
}

// Header is the title bar of every signed-in screen.
type Header struct {
	Title    string
	Subtitle string
	Status   ConnStatus
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header with the default title.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "Chats",
		Width: 80,
		theme: theme,
	}
}

// SetTheme swaps the styles used for rendering.
func (h *Header) SetTheme(theme *styles.Theme) {
	h.theme = theme
}

// SetWidth updates the header width
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header on one line plus its bottom border.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	t := h.theme

	left := t.HeaderTitle.Render(h.Title)
	if h.Subtitle != "" {
		left += "  " + t.HeaderSubtitle.Render(h.Subtitle)
	}
	right := h.statusView() + "  " + t.Muted.Render(t.Mode.Label())

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Narrow terminals keep the title and status only.
		right = h.statusView()
		gap = width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
	}
	return t.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (h *Header) statusView() string {
	t := h.theme
	ind := styles.Indicators
	switch h.Status {
	case ConnOnline:
		return t.Online.Render(ind.Online + " " + h.Status.String())
	case ConnConnecting:
		return t.Away.Render(ind.Offline + " " + h.Status.String())
	default:
		return t.Offline.Render(ind.Offline + " " + h.Status.String())
	}
}
