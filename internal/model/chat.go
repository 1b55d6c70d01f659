// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// =============================================================================
// CATEGORY
// =============================================================================

// Category is a tab of the chats screen.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryGroups   Category = "groups"
)

// Categories lists the tabs in display order.
var Categories = []Category{CategoryAll, CategoryPersonal, CategoryWork, CategoryGroups}

// Label is the tab title.
func (c Category) Label() string {
	switch c {
	case CategoryAll:
		return "All"
	case CategoryPersonal:
		return "Personal"
	case CategoryWork:
		return "Work"
	case CategoryGroups:
		return "Groups"
	default:
		return string(c)
	}
}

// Includes reports whether a chat of type t belongs on this tab.
func (c Category) Includes(t ChatType) bool {
	switch c {
	case CategoryAll:
		return true
	case CategoryPersonal:
		return t == TypePersonal
	case CategoryWork:
		return t == TypeWork
	case CategoryGroups:
		return t == TypeGroup
	default:
		return false
	}
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return CategoryAll, false
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatType classifies a chat.
type ChatType string

const (
	TypePersonal ChatType = "personal"
	TypeWork     ChatType = "work"
	TypeGroup    ChatType = "group"
)

// ChatUser is the counterpart shown on a chat row.
type ChatUser struct {
	ID       int64
	Name     string
	Email    string
	IsOnline bool
	LastSeen time.Time
}

// Chat is one row of the chats screen.
type Chat struct {
	ID string
	// User is the counterpart of a one-to-one chat; for groups it is the
	// first other member.
	User ChatUser
	// Title overrides the generated display name.
	Title       string
	MemberNames []string
	Members     []int64
	LastMessage *ChatMessage
	UnreadCount int
	IsPinned    bool
	Type        ChatType
	CreatedAt   time.Time
}

// DisplayName is the title, else the other members' names, else
// "Unknown User".
func (c Chat) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	if len(c.MemberNames) > 0 {
		return strings.Join(c.MemberNames, ", ")
	}
	if c.User.Name != "" {
		return c.User.Name
	}
	return "Unknown User"
}

// LastActivity is the time of the last message, or the creation time.
func (c Chat) LastActivity() time.Time {
	if c.LastMessage != nil && c.LastMessage.Timestamp.After(c.CreatedAt) {
		return c.LastMessage.Timestamp
	}
	return c.CreatedAt
}

// =============================================================================
// FILTERING
// =============================================================================

// Filter returns the chats on tab cat whose name or last message contains
// query, ignoring case. Pinned chats come first, then the most recently
// active. The input is not modified.
func Filter(chats []Chat, query string, cat Category) []Chat {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	out := make([]Chat, 0, len(chats))
	for _, c := range chats {
		if !cat.Includes(c.Type) {
			continue
		}
		if needle != "" && !matches(fold, c, needle) {
			continue
		}
		out = append(out, c)
	}
	SortChats(out)
	return out
}

func matches(fold cases.Caser, c Chat, needle string) bool {
	if strings.Contains(fold.String(c.DisplayName()), needle) {
		return true
	}
	return c.LastMessage != nil && strings.Contains(fold.String(c.LastMessage.Text), needle)
}

// SortChats orders chats pinned first, then newest activity first.
func SortChats(chats []Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		ta, tb := a.LastActivity(), b.LastActivity()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
}

// CountByCategory returns how many chats each tab would show, and how many
// of them have unread messages.
func CountByCategory(chats []Chat) (total, unread map[Category]int) {
	total = make(map[Category]int, len(Categories))
	unread = make(map[Category]int, len(Categories))
	for _, c := range chats {
		for _, cat := range Categories {
			if !cat.Includes(c.Type) {
				continue
			}
			total[cat]++
			if c.UnreadCount > 0 {
				unread[cat]++
			}
		}
	}
	return total, unread
}
