// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/components"
)

// =============================================================================
// CHATS SCREEN
// =============================================================================

func (m *Model) showChats() {
	m.screen = ScreenChats
	m.active = ""
	m.deps.Directory.SetActive("")
	m.composer.Blur()
	m.refreshChats()
	m.syncHeader()
}

// refreshChats rebuilds the visible list from the directory.
func (m *Model) refreshChats() {
	all := m.deps.Directory.Chats()
	visible := model.Filter(all, m.search.Value(), m.category)
	m.list.SetChats(visible)

	switch {
	case strings.TrimSpace(m.search.Value()) != "":
		m.list.Empty = "No chats match \"" + strings.TrimSpace(m.search.Value()) + "\""
	case len(all) == 0:
		m.list.Empty = "No chats yet. Press n to start one."
	default:
		m.list.Empty = "No " + strings.ToLower(m.category.Label()) + " chats"
	}
}

func (m Model) updateChats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateChatSearch(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		if m.search.Value() != "" {
			m.search.Reset()
			m.refreshChats()
		}
		m.clearNotice()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.list.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.list.Move(1)
	case key.Matches(msg, m.keys.NextTab):
		m.category = components.NextCategory(m.category, 1)
		m.refreshChats()
	case key.Matches(msg, m.keys.PrevTab):
		m.category = components.NextCategory(m.category, -1)
		m.refreshChats()
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.list.Selected(); ok {
			return m.openConversation(c.ID)
		}
	case key.Matches(msg, m.keys.Pin):
		if c, ok := m.list.Selected(); ok {
			if m.deps.Directory.TogglePin(c.ID) {
				m.setNotice("Pinned " + c.DisplayName())
			} else {
				m.setNotice("Unpinned " + c.DisplayName())
			}
			m.refreshChats()
		}
	case key.Matches(msg, m.keys.Work):
		if c, ok := m.list.Selected(); ok {
			switch m.deps.Directory.ToggleWork(c.ID) {
			case model.TypeWork:
				m.setNotice(c.DisplayName() + " moved to Work")
			case model.TypePersonal:
				m.setNotice(c.DisplayName() + " moved to Personal")
			case model.TypeGroup:
				m.setError("Group chats always stay in Groups")
			}
			m.refreshChats()
		}
	case key.Matches(msg, m.keys.NewChat):
		return m.openMembers()
	case key.Matches(msg, m.keys.Settings):
		m.screen = ScreenSettings
		m.themePicker.Reset(m.theme.Mode)
		m.clearNotice()
		m.syncHeader()
	case key.Matches(msg, m.keys.Reconnect):
		return m.reconnect()
	}
	return m, nil
}

func (m Model) updateChatSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.refreshChats()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyUp:
		m.list.Move(-1)
		return m, nil
	case tea.KeyDown:
		m.list.Move(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refreshChats()
	return m, cmd
}

// reconnect retries the chat connection for the current session.
func (m Model) reconnect() (tea.Model, tea.Cmd) {
	s, a := m.deps.Session, m.deps.Auth
	if s == nil || m.conn.IsConnected || m.conn.IsConnecting {
		return m, nil
	}
	m.setNotice("Connecting…")
	return m, m.call(func(ctx context.Context) tea.Msg {
		s.Sync(ctx, a.State())
		return reconnectedMsg{}
	})
}

func (m Model) viewChats() string {
	t := m.theme

	all := m.deps.Directory.Chats()
	_, unread := model.CountByCategory(all)

	var b strings.Builder
	b.WriteString(components.Tabs(t, m.category, unread))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		style := t.InputContainer
		if m.searching {
			style = t.InputFocused
		}
		b.WriteString(style.Width(m.width - 4).Render(m.search.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.list.View(t, m.deps.Directory.Person, m.deps.Now()))
	return b.String()
}

func (m Model) chatsShortcuts() []key.Binding {
	if m.searching {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		}
	}
	bindings := []key.Binding{m.keys.Open, m.keys.NewChat, m.keys.Search, m.keys.NextTab, m.keys.Pin, m.keys.Work, m.keys.Settings}
	if !m.conn.IsConnected && !m.conn.IsConnecting {
		bindings = append(bindings, m.keys.Reconnect)
	}
	return append(bindings, m.keys.Quit)
}

// openConversation shows channelID and loads its history once. It serves
// both the chat list and the members picker.
func (m Model) openConversation(channelID string) (tea.Model, tea.Cmd) {
	m.screen = ScreenConversation
	m.active = channelID
	m.searching = false
	m.search.Blur()
	m.deps.Directory.SetActive(channelID)
	m.composer.Reset()
	m.clearNotice()
	m.syncHeader()
	m.refreshConversation()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{m.composer.Focus(), textinput.Blink}
	if !m.deps.Directory.HistoryLoaded(channelID) {
		cmds = append(cmds, m.watch(channelID))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) renderScreenBody() string {
	switch m.screen {
	case ScreenChats:
		return m.viewChats()
	case ScreenMembers:
		return m.viewMembers()
	case ScreenConversation:
		return m.viewConversation()
	case ScreenSettings:
		return m.viewSettings()
	}
	return ""
}

func (m Model) shortcuts() []key.Binding {
	switch m.screen {
	case ScreenChats:
		return m.chatsShortcuts()
	case ScreenMembers:
		return m.membersShortcuts()
	case ScreenConversation:
		return []key.Binding{m.keys.Send, m.keys.PageUp, m.keys.PageDown, m.keys.Back}
	case ScreenSettings:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Open, m.keys.Logout, m.keys.Back}
	}
	return nil
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m Model) View() string {
	t := m.theme
	switch m.screen {
	case ScreenLoading:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.spinner.View(t))
	case ScreenLogin, ScreenRegister:
		return m.viewAuthForm()
	}

	sections := []string{m.header.View()}
	if m.notice != "" {
		if m.noticeErr {
			sections = append(sections, t.ErrorText.Render(m.notice))
		} else {
			sections = append(sections, t.SuccessText.Render(m.notice))
		}
	}
	sections = append(sections, m.renderScreenBody())

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.deps.Compact {
		return t.App.Render(body)
	}

	footer := components.Shortcuts(t, m.width, m.shortcuts()...)
	gap := m.height - lipgloss.Height(body) - lipgloss.Height(footer)
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return t.App.Render(body + "\n" + footer)
}
