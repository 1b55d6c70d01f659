// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

type entry struct {
	channel transport.Channel
	conv    *Conversation
	pinned  bool
	// kind is the user's choice for one-to-one chats; groups are always
	// TypeGroup.
	kind ChatType
}

// Directory is the live chat list of the signed-in user. It is safe for
// concurrent use.
type Directory struct {
	mu     sync.RWMutex
	self   int64
	people map[int64]ChatUser
	chats  map[string]*entry
	active string

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// NewDirectory creates an empty directory with no owner.
func NewDirectory() *Directory {
	return &Directory{
		people:    make(map[int64]ChatUser),
		chats:     make(map[string]*entry),
		listeners: make(map[int]func()),
	}
}

// Reset drops every chat and makes self the owner.
func (d *Directory) Reset(self int64) {
	d.mu.Lock()
	d.self = self
	d.chats = make(map[string]*entry)
	d.people = make(map[int64]ChatUser)
	d.active = ""
	d.mu.Unlock()
	d.notify()
}

// Self returns the owner's id.
func (d *Directory) Self() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.self
}

// SetPeople records names for user ids, usually from the roster. Presence
// already known is kept.
func (d *Directory) SetPeople(members []api.Member) {
	d.mu.Lock()
	for _, m := range members {
		p := d.people[m.ID]
		p.ID, p.Name, p.Email = m.ID, m.Name, m.Email
		d.people[m.ID] = p
	}
	d.mu.Unlock()
	d.notify()
}

// Person returns what is known about id.
func (d *Directory) Person(id int64) (ChatUser, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	return p, ok
}

// AddChannel adds ch, or refreshes it when already present.
func (d *Directory) AddChannel(ch transport.Channel) Chat {
	d.mu.Lock()
	e := d.entryLocked(ch.ID)
	e.channel = ch
	c := d.chatLocked(e)
	d.mu.Unlock()
	d.notify()
	return c
}

// entryLocked returns the entry for id, creating it when missing.
func (d *Directory) entryLocked(id string) *entry {
	e, ok := d.chats[id]
	if !ok {
		e = &entry{
			channel: transport.Channel{ID: id},
			conv:    NewConversation(id),
			kind:    TypePersonal,
		}
		d.chats[id] = e
	}
	return e
}

// LoadHistory merges the answer to a watch.
func (d *Directory) LoadHistory(st transport.ChannelState) {
	d.mu.Lock()
	e := d.entryLocked(st.Channel.ID)
	e.channel = st.Channel
	history := make([]*ChatMessage, 0, len(st.Messages))
	for _, m := range st.Messages {
		msg := FromTransport(m, d.self)
		if d.active == st.Channel.ID {
			msg.IsRead = true
		}
		history = append(history, msg)
	}
	e.conv.Merge(history)
	d.mu.Unlock()
	d.notify()
}

// AddMessage records m, from an event or the reply to a send.
func (d *Directory) AddMessage(m transport.Message) {
	d.mu.Lock()
	e := d.entryLocked(m.ChannelID)
	if len(e.channel.Members) == 0 {
		e.channel.Members = uniqueIDs(d.self, m.UserID)
	}
	msg := FromTransport(m, d.self)
	if d.active == m.ChannelID {
		msg.IsRead = true
	}
	if m.UserName != "" && m.UserID != d.self {
		p := d.people[m.UserID]
		if p.Name == "" {
			p.ID, p.Name = m.UserID, m.UserName
			d.people[m.UserID] = p
		}
	}
	e.conv.Add(msg)
	d.mu.Unlock()
	d.notify()
}

// Apply updates the directory from a transport event and reports whether it
// changed anything.
func (d *Directory) Apply(ev transport.Event) bool {
	switch ev.Kind {
	case transport.EventChannel:
		if ev.Channel != nil {
			d.AddChannel(*ev.Channel)
			return true
		}
	case transport.EventMessage:
		if ev.Message != nil {
			d.AddMessage(*ev.Message)
			return true
		}
	case transport.EventPresence:
		if ev.Presence != nil {
			d.SetOnline(ev.Presence.UserID, ev.Presence.Online, time.Now())
			return true
		}
	}
	return false
}

// SetOnline records presence for id at t.
func (d *Directory) SetOnline(id int64, online bool, t time.Time) {
	d.mu.Lock()
	p := d.people[id]
	p.ID = id
	if p.IsOnline && !online {
		p.LastSeen = t
	}
	p.IsOnline = online
	d.people[id] = p
	d.mu.Unlock()
	d.notify()
}

// SetActive marks channelID as open on screen, reading its messages. An
// empty id means no chat is open.
func (d *Directory) SetActive(channelID string) {
	d.mu.Lock()
	d.active = channelID
	changed := 0
	if e, ok := d.chats[channelID]; ok {
		changed = e.conv.MarkRead()
	}
	d.mu.Unlock()
	if changed > 0 {
		d.notify()
	}
}

// Active returns the open channel id.
func (d *Directory) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// TogglePin flips the pin state and returns the new value.
func (d *Directory) TogglePin(channelID string) bool {
	d.mu.Lock()
	e, ok := d.chats[channelID]
	pinned := false
	if ok {
		e.pinned = !e.pinned
		pinned = e.pinned
	}
	d.mu.Unlock()
	if ok {
		d.notify()
	}
	return pinned
}

// ToggleWork moves a one-to-one chat between the personal and work tabs.
// Groups are unaffected. It returns the resulting type.
func (d *Directory) ToggleWork(channelID string) ChatType {
	d.mu.Lock()
	e, ok := d.chats[channelID]
	if !ok {
		d.mu.Unlock()
		return ""
	}
	if e.channel.IsGroup() {
		d.mu.Unlock()
		return TypeGroup
	}
	if e.kind == TypeWork {
		e.kind = TypePersonal
	} else {
		e.kind = TypeWork
	}
	kind := e.kind
	d.mu.Unlock()
	d.notify()
	return kind
}

// Chats returns every chat, unsorted.
func (d *Directory) Chats() []Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Chat, 0, len(d.chats))
	for _, e := range d.chats {
		out = append(out, d.chatLocked(e))
	}
	return out
}

// Chat returns the chat with channelID.
func (d *Directory) Chat(channelID string) (Chat, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.chats[channelID]
	if !ok {
		return Chat{}, false
	}
	return d.chatLocked(e), true
}

// Messages returns a copy of channelID's history, oldest first.
func (d *Directory) Messages(channelID string) []ChatMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.chats[channelID]
	if !ok {
		return nil
	}
	return e.conv.History()
}

// HistoryLoaded reports whether channelID's server history was merged.
func (d *Directory) HistoryLoaded(channelID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.chats[channelID]
	return ok && e.conv.Loaded
}

// FindDirect returns the one-to-one chat with userID, if any.
func (d *Directory) FindDirect(userID int64) (Chat, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.chats {
		m := e.channel.Members
		if len(m) == 2 && e.channel.Name == "" && containsID(m, userID) && containsID(m, d.self) {
			return d.chatLocked(e), true
		}
	}
	return Chat{}, false
}

func (d *Directory) chatLocked(e *entry) Chat {
	c := Chat{
		ID:          e.channel.ID,
		Title:       e.channel.Name,
		Members:     append([]int64(nil), e.channel.Members...),
		UnreadCount: e.conv.UnreadCount(),
		IsPinned:    e.pinned,
		Type:        e.kind,
		CreatedAt:   e.channel.CreatedAt,
	}
	if e.channel.IsGroup() {
		c.Type = TypeGroup
	}
	if last := e.conv.GetLastMessage(); last != nil {
		msg := *last
		c.LastMessage = &msg
	}

	for _, id := range e.channel.Members {
		if id == d.self {
			continue
		}
		p, ok := d.people[id]
		if !ok {
			p = ChatUser{ID: id}
		}
		if c.User.ID == 0 {
			c.User = p
		}
		if c.Type == TypeGroup && p.Name != "" {
			c.MemberNames = append(c.MemberNames, p.Name)
		}
	}
	return c
}

// Subscribe registers fn to run after every change and returns a function
// that removes it.
func (d *Directory) Subscribe(fn func()) func() {
	d.listenersMu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.listenersMu.Lock()
			delete(d.listeners, id)
			d.listenersMu.Unlock()
		})
	}
}

func (d *Directory) notify() {
	d.listenersMu.Lock()
	fns := make([]func(), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !containsID(out, id) {
			out = append(out, id)
		}
	}
	return out
}
