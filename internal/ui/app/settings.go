// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrevamp-tui/internal/theme"
)

// =============================================================================
// SETTINGS SCREEN
// =============================================================================

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.showChats()
		m.clearNotice()
	case key.Matches(msg, m.keys.Up):
		m.themePicker.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.themePicker.Move(1)
	case key.Matches(msg, m.keys.Open):
		return m.chooseTheme(m.themePicker.Choice())
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	}
	return m, nil
}

// chooseTheme applies and persists mode.
func (m Model) chooseTheme(mode theme.Mode) (tea.Model, tea.Cmd) {
	tc := m.deps.Theme
	m.setNotice("Theme set to " + mode.Label())
	tc.SetTheme(m.ctx, mode)
	m.applyTheme(tc.Snapshot())
	return m, nil
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	a := m.deps.Auth
	m.spinner.SetMessage("Signing out")
	start := m.spinner.Start()
	return m, tea.Batch(start, m.call(func(ctx context.Context) tea.Msg {
		a.Logout(ctx)
		return AuthChangedMsg{State: a.State()}
	}))
}

func (m Model) viewSettings() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(m.themePicker.View(t, m.theme.Mode))
	b.WriteString("\n\n")
	if m.auth.User != nil {
		b.WriteString(t.FieldLabel.Render("Signed in as"))
		b.WriteString("\n")
		b.WriteString(t.ListName.Render(m.auth.User.Name))
		b.WriteString("  ")
		b.WriteString(t.Muted.Render(m.auth.User.Email))
		b.WriteString("\n\n")
	}
	b.WriteString(t.Button.Render("L") + " " + t.Muted.Render("Sign out"))
	if m.spinner.IsActive() {
		b.WriteString("\n")
		b.WriteString(m.spinner.View(t))
	}
	return b.String()
}
