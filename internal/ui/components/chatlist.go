// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// previewLength is how many runes of the last message a row shows.
const previewLength = 50

// rowHeight is the number of lines one chat row takes.
const rowHeight = 2

// =============================================================================
// CHAT LIST
// =============================================================================

// ChatList is a scrollable list of chat rows with a cursor.
type ChatList struct {
	chats  []model.Chat
	cursor int
	offset int
	width  int
	height int
	// Empty is shown when there are no rows.
	Empty string
}

// NewChatList creates an empty list.
func NewChatList() *ChatList {
	return &ChatList{width: 80, height: 10, Empty: "No chats yet"}
}

// SetSize sets the area the list renders into.
func (l *ChatList) SetSize(width, height int) {
	l.width, l.height = width, height
	l.clamp()
}

// SetChats replaces the rows, keeping the cursor on the same chat when it is
// still present.
func (l *ChatList) SetChats(chats []model.Chat) {
	var keep string
	if c, ok := l.Selected(); ok {
		keep = c.ID
	}
	l.chats = chats
	l.cursor = 0
	for i, c := range chats {
		if c.ID == keep {
			l.cursor = i
			break
		}
	}
	l.clamp()
}

// Len returns the number of rows.
func (l *ChatList) Len() int { return len(l.chats) }

// Move moves the cursor by delta rows.
func (l *ChatList) Move(delta int) {
	l.cursor += delta
	l.clamp()
}

// Selected returns the chat under the cursor.
func (l *ChatList) Selected() (model.Chat, bool) {
	if l.cursor < 0 || l.cursor >= len(l.chats) {
		return model.Chat{}, false
	}
	return l.chats[l.cursor], true
}

func (l *ChatList) visibleRows() int {
	n := l.height / rowHeight
	if n < 1 {
		n = 1
	}
	return n
}

func (l *ChatList) clamp() {
	if l.cursor >= len(l.chats) {
		l.cursor = len(l.chats) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	rows := l.visibleRows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// View renders the visible rows.
func (l *ChatList) View(t *styles.Theme, people func(id int64) (model.ChatUser, bool), now time.Time) string {
	if len(l.chats) == 0 {
		return t.Muted.Render(l.Empty)
	}
	end := l.offset + l.visibleRows()
	if end > len(l.chats) {
		end = len(l.chats)
	}
	rows := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		c := l.chats[i]
		online := false
		if people != nil {
			if p, ok := people(c.User.ID); ok {
				online = p.IsOnline
			}
		}
		rows = append(rows, ChatItem(t, c, i == l.cursor, online, l.width, now))
	}
	return strings.Join(rows, "\n")
}

// ChatItem renders one two-line chat row.
func ChatItem(t *styles.Theme, c model.Chat, selected, online bool, width int, now time.Time) string {
	ind := styles.Indicators
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	presence := t.Offline.Render(ind.Offline)
	if online {
		presence = t.Online.Render(ind.Online)
	}
	if c.Type == model.TypeGroup {
		presence = " "
	}
	avatar := t.Avatar.Render(util.Initial(c.DisplayName()))

	var when string
	if c.LastMessage != nil {
		when = model.FormatListTime(c.LastMessage.Timestamp, now)
	} else {
		when = model.FormatListTime(c.CreatedAt, now)
	}
	if c.IsPinned {
		when = ind.Pinned + " " + when
	}
	whenView := t.ListTime.Render(when)

	lead := lipgloss.Width(avatar) + 3
	nameWidth := inner - lead - lipgloss.Width(whenView) - 1
	name := t.ListName.Render(util.Truncate(c.DisplayName(), nameWidth))
	top := avatar + " " + presence + " " + name
	if gap := inner - lipgloss.Width(top) - lipgloss.Width(whenView); gap > 0 {
		top += strings.Repeat(" ", gap)
	}
	top += whenView

	preview := ""
	if c.LastMessage != nil {
		preview = c.LastMessage.Preview(previewLength)
		if c.LastMessage.IsOwn {
			preview = "You: " + preview
		}
	}
	badge := ""
	if c.UnreadCount > 0 {
		badge = t.UnreadBadge.Render(strconv.Itoa(c.UnreadCount))
	}
	previewWidth := inner - lead - lipgloss.Width(badge) - 1
	bottom := strings.Repeat(" ", lead) + t.ListPreview.Render(util.PadRight(preview, previewWidth))
	if badge != "" {
		bottom += " " + badge
	}

	row := top + "\n" + bottom
	if selected {
		return t.ListItemSelected.Render(row)
	}
	return t.ListItem.Render(" " + strings.ReplaceAll(row, "\n", "\n "))
}
