// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// maxCacheEntries bounds the rendered-body cache.
const maxCacheEntries = 512

// Markdown renders message bodies with Glamour. Plain text skips Glamour.
type Markdown struct {
	renderer *glamour.TermRenderer
	dark     bool
	width    int
	cache    map[string]string
}

// NewMarkdown creates a renderer wrapping at width columns.
func NewMarkdown(dark bool, width int) *Markdown {
	if width < 10 {
		width = 10
	}
	style := "light"
	if dark {
		style = "dark"
	}
	m := &Markdown{dark: dark, width: width, cache: make(map[string]string)}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.renderer = r
	}
	return m
}

// Matches reports whether m was built for dark and width.
func (m *Markdown) Matches(dark bool, width int) bool {
	return m != nil && m.dark == dark && m.width == width
}

// Render returns text ready for a bubble.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil || !looksLikeMarkdown(text) {
		return lipgloss.NewStyle().Width(m.wrapWidth()).Render(text)
	}
	if out, ok := m.cache[text]; ok {
		return out
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return lipgloss.NewStyle().Width(m.wrapWidth()).Render(text)
	}
	out = strings.Trim(out, "\n")
	if len(m.cache) >= maxCacheEntries {
		m.cache = make(map[string]string)
	}
	m.cache[text] = out
	return out
}

func (m *Markdown) wrapWidth() int {
	if m == nil {
		return 60
	}
	return m.width
}

func looksLikeMarkdown(s string) bool {
	return strings.ContainsAny(s, "*_`#[>") || strings.Contains(s, "\n- ")
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageOptions controls how a conversation renders.
type MessageOptions struct {
	Width          int
	ShowTimestamps bool
	// ShowSenders labels messages from others, for group chats.
	ShowSenders bool
	Now         time.Time
}

// Messages renders msgs oldest first with a separator before each new day.
func Messages(t *styles.Theme, md *Markdown, msgs []model.ChatMessage, opts MessageOptions) string {
	if len(msgs) == 0 {
		return t.Muted.Render("No messages yet. Say hello!")
	}
	width := opts.Width
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	var lastDay time.Time
	for i, msg := range msgs {
		day := dayOf(msg.Timestamp.Local())
		if i == 0 || !day.Equal(lastDay) {
			b.WriteString(t.DaySeparator.Width(width).Render(DayLabel(msg.Timestamp, opts.Now)))
			b.WriteString("\n")
			lastDay = day
		}
		b.WriteString(Bubble(t, md, msg, width, opts))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Bubble renders one message, right-aligned when it is the user's own.
func Bubble(t *styles.Theme, md *Markdown, msg model.ChatMessage, width int, opts MessageOptions) string {
	body := md.Render(msg.Text)

	var meta []string
	if opts.ShowTimestamps {
		meta = append(meta, model.FormatClock(msg.Timestamp))
	}
	if msg.IsOwn {
		if g := msg.Status.Glyph(); g != "" {
			meta = append(meta, g)
		}
	}
	metaLine := t.BubbleMeta.Render(strings.Join(meta, " "))

	if msg.IsOwn {
		bubble := t.OwnBubble.Render(body)
		block := lipgloss.JoinVertical(lipgloss.Right, bubble, metaLine)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}

	parts := []string{}
	if opts.ShowSenders && msg.SenderName != "" {
		parts = append(parts, t.SenderName.Render(msg.SenderName))
	}
	parts = append(parts, t.OtherBubble.Render(body), metaLine)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// DayLabel is "Today", "Yesterday", or the date.
func DayLabel(ts, now time.Time) string {
	d, today := dayOf(ts.Local()), dayOf(now.Local())
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case d.Year() == today.Year():
		return ts.Local().Format("Mon, Jan 2")
	default:
		return ts.Local().Format("Jan 2, 2006")
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
