// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/components"
)

// =============================================================================
// CONVERSATION SCREEN
// =============================================================================

func (m Model) watch(channelID string) tea.Cmd {
	chat := m.deps.Chat
	if chat == nil || !m.conn.IsConnected {
		return nil
	}
	return m.call(func(ctx context.Context) tea.Msg {
		st, err := chat.Watch(ctx, channelID)
		return historyMsg{channelID: channelID, state: st, err: err}
	})
}

func (m Model) handleHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("channel_id", msg.channelID).Msg("watch failed")
		if msg.channelID == m.active {
			m.setError("Could not load messages: " + describeError(msg.err))
		}
		return m, nil
	}
	m.deps.Directory.LoadHistory(*msg.state)
	if msg.channelID == m.active {
		m.refreshConversation()
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m Model) updateConversation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.showChats()
		m.clearNotice()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Send):
		return m.send()
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.composer.Value())
	if text == "" || m.sending {
		return m, nil
	}
	if m.deps.Chat == nil || !m.conn.IsConnected {
		m.setError("Not connected to chat. Your message was not sent.")
		return m, nil
	}

	m.sending = true
	m.composer.Reset()
	m.clearNotice()
	chat, channelID := m.deps.Chat, m.active
	return m, m.call(func(ctx context.Context) tea.Msg {
		msg, err := chat.SendMessage(ctx, channelID, text)
		return sentMsg{channelID: channelID, text: text, message: msg, err: err}
	})
}

func (m Model) handleSent(msg sentMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("channel_id", msg.channelID).Msg("send failed")
		m.setError("Message not sent: " + describeError(msg.err))
		// Give the text back so it can be retried.
		if msg.channelID == m.active && m.composer.Value() == "" {
			m.composer.SetValue(msg.text)
			m.composer.CursorEnd()
		}
		return m, nil
	}
	m.deps.Directory.AddMessage(*msg.message)
	if msg.channelID == m.active {
		m.refreshConversation()
		m.viewport.GotoBottom()
	}
	return m, nil
}

// refreshConversation re-renders the open chat, staying at the bottom when
// the view was already there.
func (m *Model) refreshConversation() {
	if m.active == "" {
		return
	}
	atBottom := m.viewport.AtBottom()

	c, _ := m.deps.Directory.Chat(m.active)
	msgs := m.deps.Directory.Messages(m.active)
	content := components.Messages(m.theme, m.markdown, msgs, components.MessageOptions{
		Width:          m.width - 2,
		ShowTimestamps: m.deps.ShowTimestamps,
		ShowSenders:    c.Type == model.TypeGroup,
		Now:            m.deps.Now(),
	})
	m.viewport.SetContent(content)
	if atBottom {
		m.viewport.GotoBottom()
	}
	m.syncTitle(c)
}

func (m *Model) syncTitle(c model.Chat) {
	if m.screen == ScreenConversation {
		m.header.Title, m.header.Subtitle = chatTitle(c, m.deps.Directory, m.deps.Now())
	}
}

// conversationTitle returns the header title and subtitle of the open chat.
func (m Model) conversationTitle() (string, string) {
	c, ok := m.deps.Directory.Chat(m.active)
	if !ok {
		return "Chat", ""
	}
	return chatTitle(c, m.deps.Directory, m.deps.Now())
}

func chatTitle(c model.Chat, d *model.Directory, now time.Time) (string, string) {
	if c.Type == model.TypeGroup {
		return c.DisplayName(), strconv.Itoa(len(c.Members)) + " members"
	}
	p, ok := d.Person(c.User.ID)
	switch {
	case ok && p.IsOnline:
		return c.DisplayName(), "online"
	case ok && !p.LastSeen.IsZero():
		return c.DisplayName(), "last seen " + humanize.RelTime(p.LastSeen, now, "ago", "from now")
	default:
		return c.DisplayName(), ""
	}
}

func (m Model) viewConversation() string {
	t := m.theme
	var b strings.Builder
	if !m.deps.Directory.HistoryLoaded(m.active) && m.conn.IsConnected {
		b.WriteString(t.Muted.Render("Loading messages…"))
		b.WriteString("\n")
	}
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	style := t.InputFocused
	if !m.conn.IsConnected {
		style = t.InputContainer
	}
	b.WriteString(style.Width(m.width - 4).Render(m.composer.View()))
	if m.sending {
		b.WriteString("\n")
		b.WriteString(t.Muted.Render("Sending…"))
	}
	return b.String()
}
