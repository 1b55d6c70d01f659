// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"math"
	"strings"
	"time"

	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

// =============================================================================
// MESSAGE STATUS
// =============================================================================

// MessageStatus is the delivery state of an outgoing message.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// Glyph is the short marker shown next to an outgoing message.
func (s MessageStatus) Glyph() string {
	switch s {
	case StatusSending:
		return "…"
	case StatusSent:
		return "✓"
	case StatusDelivered, StatusRead:
		return "✓✓"
	case StatusFailed:
		return "!"
	default:
		return ""
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ChatMessage is one message in a conversation.
type ChatMessage struct {
	ID         string
	Text       string
	Timestamp  time.Time
	SenderID   int64
	SenderName string
	IsRead     bool
	// IsOwn is true for messages the signed-in user sent.
	IsOwn  bool
	Status MessageStatus
}

// FromTransport converts a wire message for the user self.
func FromTransport(m transport.Message, self int64) *ChatMessage {
	own := m.UserID == self
	msg := &ChatMessage{
		ID:         m.ID,
		Text:       m.Text,
		Timestamp:  m.CreatedAt,
		SenderID:   m.UserID,
		SenderName: m.UserName,
		IsOwn:      own,
		IsRead:     own,
	}
	if own {
		msg.Status = StatusSent
	}
	return msg
}

// Preview returns the text on one line, cut to maxLen runes with "...".
func (m *ChatMessage) Preview(maxLen int) string {
	text := strings.Join(strings.Fields(m.Text), " ")
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// =============================================================================
// TIME FORMATTING
// =============================================================================

// FormatListTime renders t for the chat list relative to now: a clock time
// today, "Yesterday", a weekday within the week, else month and day.
func FormatListTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	days := int(math.Round(startOfDay(now).Sub(startOfDay(t)).Hours() / 24))
	switch {
	case days <= 0:
		return t.Format("15:04")
	case days == 1:
		return "Yesterday"
	case days < 7:
		return t.Format("Mon")
	default:
		return t.Format("Jan 2")
	}
}

// FormatClock renders t as a 24-hour clock time for message bubbles.
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
