// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

// MaxMessages is the maximum number of messages kept per conversation.
// Older messages are pruned first.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the message history of one channel, oldest first.
type Conversation struct {
	ChannelID string
	Messages  []*ChatMessage
	// Loaded is set once the server history has been merged in.
	Loaded    bool
	UpdatedAt time.Time
}

// NewConversation creates an empty conversation for channelID.
func NewConversation(channelID string) *Conversation {
	return &Conversation{
		ChannelID: channelID,
		Messages:  make([]*ChatMessage, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Add appends msg, or replaces the message with the same ID. It reports
// whether msg was new.
func (c *Conversation) Add(msg *ChatMessage) bool {
	if existing := c.GetMessageByID(msg.ID); existing != nil {
		*existing = *msg
		return false
	}
	c.Messages = append(c.Messages, msg)
	if n := len(c.Messages); n > 1 && msg.Timestamp.Before(c.Messages[n-2].Timestamp) {
		c.sort()
	}
	if msg.Timestamp.After(c.UpdatedAt) {
		c.UpdatedAt = msg.Timestamp
	}
	c.pruneOldMessages()
	return true
}

// Merge adds a batch of history. Messages already present are kept as is.
func (c *Conversation) Merge(history []*ChatMessage) {
	for _, msg := range history {
		if c.GetMessageByID(msg.ID) != nil {
			continue
		}
		c.Messages = append(c.Messages, msg)
		if msg.Timestamp.After(c.UpdatedAt) {
			c.UpdatedAt = msg.Timestamp
		}
	}
	c.sort()
	c.pruneOldMessages()
	c.Loaded = true
}

// GetLastMessage returns the newest message, or nil.
func (c *Conversation) GetLastMessage() *ChatMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// GetMessageByID returns the message with id, or nil.
func (c *Conversation) GetMessageByID(id string) *ChatMessage {
	if id == "" {
		return nil
	}
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MarkRead marks every message read and returns how many changed.
func (c *Conversation) MarkRead() int {
	n := 0
	for _, msg := range c.Messages {
		if !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n
}

// UnreadCount counts messages from others not yet read.
func (c *Conversation) UnreadCount() int {
	n := 0
	for _, msg := range c.Messages {
		if !msg.IsOwn && !msg.IsRead {
			n++
		}
	}
	return n
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty reports whether there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// History returns a copy of the messages.
func (c *Conversation) History() []ChatMessage {
	out := make([]ChatMessage, len(c.Messages))
	for i, msg := range c.Messages {
		out[i] = *msg
	}
	return out
}

func (c *Conversation) sort() {
	sort.SliceStable(c.Messages, func(i, j int) bool {
		return c.Messages[i].Timestamp.Before(c.Messages[j].Timestamp)
	})
}

// pruneOldMessages keeps the newest MaxMessages messages.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	keep := make([]*ChatMessage, MaxMessages)
	copy(keep, c.Messages[len(c.Messages)-MaxMessages:])
	c.Messages = keep
}
