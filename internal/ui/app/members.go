// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

// =============================================================================
// MEMBERS SCREEN
// =============================================================================

// openMembers shows the roster picker and fetches the roster unless the
// cache is still fresh.
func (m Model) openMembers() (tea.Model, tea.Cmd) {
	m.screen = ScreenMembers
	m.picker.ClearSelection()
	m.memberSearch.Reset()
	m.picker.SetQuery("")
	m.pickerSearch = false
	m.creating = false
	m.clearNotice()
	m.syncHeader()
	if m.deps.Roster != nil {
		m.roster = m.deps.Roster.Snapshot()
		m.picker.SetMembers(m.roster.Entries)
	}
	return m, m.fetchRoster(false)
}

func (m Model) updateMembers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.creating {
		return m, nil
	}
	if m.pickerSearch {
		return m.updateMemberSearch(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.showChats()
		m.clearNotice()
		return m, nil
	case key.Matches(msg, m.keys.Search):
		m.pickerSearch = true
		cmd := m.memberSearch.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Up):
		m.picker.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.picker.Move(1)
	case key.Matches(msg, m.keys.Toggle):
		m.picker.Toggle()
	case key.Matches(msg, m.keys.Refresh):
		m.clearNotice()
		return m, m.fetchRoster(true)
	case key.Matches(msg, m.keys.Confirm):
		return m.startChat()
	}
	return m, nil
}

func (m Model) updateMemberSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.pickerSearch = false
		m.memberSearch.Blur()
		m.memberSearch.Reset()
		m.picker.SetQuery("")
		return m, nil
	case tea.KeyEnter:
		m.pickerSearch = false
		m.memberSearch.Blur()
		return m, nil
	case tea.KeyUp:
		m.picker.Move(-1)
		return m, nil
	case tea.KeyDown:
		m.picker.Move(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.memberSearch, cmd = m.memberSearch.Update(msg)
	m.picker.SetQuery(m.memberSearch.Value())
	return m, cmd
}

// startChat opens the chat with the selected members. With nobody selected
// the member under the cursor is used. An existing direct chat is reused.
func (m Model) startChat() (tea.Model, tea.Cmd) {
	selected := m.picker.Selected()
	if len(selected) == 0 {
		cur, ok := m.picker.Current()
		if !ok {
			return m, nil
		}
		selected = []api.Member{cur}
	}

	if len(selected) == 1 {
		if c, ok := m.deps.Directory.FindDirect(selected[0].ID); ok {
			return m.openConversation(c.ID)
		}
	}
	if m.deps.Chat == nil || !m.conn.IsConnected {
		m.setError("Not connected to chat. Go back and press c to reconnect.")
		return m, nil
	}

	ids := make([]int64, 0, len(selected))
	names := make([]string, 0, len(selected))
	for _, sm := range selected {
		ids = append(ids, sm.ID)
		names = append(names, sm.Name)
	}
	m.creating = true
	m.spinner.SetMessage("Starting chat with " + strings.Join(names, ", "))
	chat := m.deps.Chat
	start := m.spinner.Start()
	return m, tea.Batch(start, m.call(func(ctx context.Context) tea.Msg {
		ch, err := chat.CreateChannel(ctx, ids)
		return channelCreatedMsg{channel: ch, err: err}
	}))
}

func (m Model) handleChannelCreated(msg channelCreatedMsg) (tea.Model, tea.Cmd) {
	m.creating = false
	m.spinner.Stop()
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("create channel failed")
		m.setError("Could not start chat: " + describeError(msg.err))
		return m, nil
	}
	if m.screen != ScreenMembers {
		return m, nil
	}
	m.deps.Directory.AddChannel(*msg.channel)
	m.picker.ClearSelection()
	return m.openConversation(msg.channel.ID)
}

func (m Model) viewMembers() string {
	t := m.theme
	var b strings.Builder

	status := ""
	if m.deps.Roster != nil {
		status = m.deps.Roster.LastUpdatedLabel(m.deps.Now())
	}
	if m.roster.IsLoading {
		status = "Loading members…"
	}
	if status != "" {
		b.WriteString(t.Muted.Render(status))
		b.WriteString("\n")
	}
	if m.roster.Error != "" {
		b.WriteString(t.ErrorText.Render(m.roster.Error + " Press r to retry."))
		b.WriteString("\n")
	}
	if m.pickerSearch || m.memberSearch.Value() != "" {
		style := t.InputContainer
		if m.pickerSearch {
			style = t.InputFocused
		}
		b.WriteString(style.Width(m.width - 4).Render(m.memberSearch.View()))
		b.WriteString("\n")
	}

	if n := len(m.picker.Selected()); n > 0 {
		label := "1 member selected"
		if n > 1 {
			label = strconv.Itoa(n) + " members selected, starts a group"
		}
		b.WriteString(t.SenderName.Render(label))
		b.WriteString("\n")
	}

	if m.creating {
		b.WriteString(m.spinner.View(t))
		return b.String()
	}
	if m.roster.IsLoading && len(m.roster.Entries) == 0 {
		return strings.TrimRight(b.String(), "\n")
	}
	b.WriteString(m.picker.View(t, func(id int64) bool {
		p, ok := m.deps.Directory.Person(id)
		return ok && p.IsOnline
	}))
	return b.String()
}

func (m Model) membersShortcuts() []key.Binding {
	if m.pickerSearch {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		}
	}
	return []key.Binding{m.keys.Confirm, m.keys.Toggle, m.keys.Search, m.keys.Refresh, m.keys.Back}
}
