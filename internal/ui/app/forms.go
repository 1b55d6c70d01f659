// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// Form field keys. They match the names the validators and the server use.
const (
	fieldName         = "name"
	fieldEmail        = "email"
	fieldPassword     = "password"
	fieldConfirmation = "password_confirmation"
	fieldHospitalCode = "hospital_code"
)

// =============================================================================
// FORM
// =============================================================================

type field struct {
	key   string
	label string
	input textinput.Model
}

// form is a vertical list of labelled inputs with per-field errors.
type form struct {
	fields []field
	focus  int
	errs   auth.FormErrors
	// err is the form-level message, usually from the server.
	err  string
	busy bool
}

func newField(key, label, placeholder string, secret bool) field {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 254
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return field{key: key, label: label, input: in}
}

func newLoginForm() form {
	f := form{fields: []field{
		newField(fieldEmail, "Email", "you@hospital.org", false),
		newField(fieldPassword, "Password", "", true),
	}}
	f.fields[0].input.Focus()
	return f
}

func newRegisterForm() form {
	f := form{fields: []field{
		newField(fieldName, "Full name", "Jane Doe", false),
		newField(fieldEmail, "Email", "you@hospital.org", false),
		newField(fieldHospitalCode, "Hospital code", "MERCY", false),
		newField(fieldPassword, "Password", "", true),
		newField(fieldConfirmation, "Confirm password", "", true),
	}}
	f.fields[0].input.Focus()
	return f
}

func (f form) value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return fl.input.Value()
		}
	}
	return ""
}

func (f *form) setValue(key, v string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].input.SetValue(v)
		}
	}
}

func (f *form) setWidth(width int) {
	for i := range f.fields {
		f.fields[i].input.Width = maxInt(minInt(width-8, 48), 10)
	}
}

// move shifts focus by delta, wrapping.
func (f *form) move(delta int) tea.Cmd {
	n := len(f.fields)
	f.fields[f.focus].input.Blur()
	f.focus = ((f.focus+delta)%n + n) % n
	return f.fields[f.focus].input.Focus()
}

func (f *form) focusFirst() tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = 0
	return f.fields[0].input.Focus()
}

// reset clears values, errors and focus.
func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.Reset()
		f.fields[i].input.Blur()
	}
	f.focus = 0
	f.fields[0].input.Focus()
	f.errs, f.err, f.busy = nil, "", false
}

// fail records err: field errors go beside their inputs, anything else
// above the form.
func (f *form) fail(err error) {
	f.errs, f.err = nil, ""

	var fe auth.FormErrors
	if errors.As(err, &fe) {
		f.errs = fe
		return
	}
	var rej *api.ServerRejected
	if errors.As(err, &rej) && len(rej.Errors) > 0 {
		f.errs = auth.FormErrors{}
		for k, msgs := range rej.Errors {
			if len(msgs) > 0 {
				f.errs[k] = msgs[0]
			}
		}
	}
	f.err = describeError(err)
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

func (f form) view(t *styles.Theme, width int) string {
	var b strings.Builder
	if f.err != "" {
		b.WriteString(t.ErrorBox.Width(minInt(width-4, 52)).Render(f.err))
		b.WriteString("\n\n")
	}
	for i, fl := range f.fields {
		b.WriteString(t.FieldLabel.Render(fl.label))
		b.WriteString("\n")
		style := t.InputContainer
		if i == f.focus {
			style = t.InputFocused
		}
		b.WriteString(style.Render(fl.input.View()))
		b.WriteString("\n")
		if msg, ok := f.errs[fl.key]; ok {
			b.WriteString(t.FieldError.Render(msg))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// LOGIN AND REGISTER SCREENS
// =============================================================================

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwitchForm):
		m.screen = ScreenRegister
		m.register.reset()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NextField):
		cmd := m.login.move(1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		cmd := m.login.move(-1)
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if m.login.focus < len(m.login.fields)-1 {
			cmd := m.login.move(1)
			return m, cmd
		}
		return m.submitLogin()
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	req := api.LoginRequest{
		Email:    strings.TrimSpace(m.login.value(fieldEmail)),
		Password: m.login.value(fieldPassword),
	}
	if err := auth.ValidateLogin(req); err != nil {
		m.login.fail(err)
		return m, nil
	}

	m.login.errs, m.login.err, m.login.busy = nil, "", true
	m.spinner.SetMessage("Signing in")
	a := m.deps.Auth
	start := m.spinner.Start()
	return m, tea.Batch(start, m.call(func(ctx context.Context) tea.Msg {
		return authResultMsg{err: a.Login(ctx, req.Email, req.Password)}
	}))
}

func (m Model) updateRegister(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.register.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwitchForm), key.Matches(msg, m.keys.Back):
		m.screen = ScreenLogin
		cmd := m.login.focusFirst()
		return m, cmd
	case key.Matches(msg, m.keys.NextField):
		cmd := m.register.move(1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		cmd := m.register.move(-1)
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if m.register.focus < len(m.register.fields)-1 {
			cmd := m.register.move(1)
			return m, cmd
		}
		return m.submitRegister()
	}
	var cmd tea.Cmd
	m.register, cmd = m.register.update(msg)
	return m, cmd
}

func (m Model) submitRegister() (tea.Model, tea.Cmd) {
	req := api.RegisterRequest{
		Name:                 strings.TrimSpace(m.register.value(fieldName)),
		Email:                strings.TrimSpace(m.register.value(fieldEmail)),
		Password:             m.register.value(fieldPassword),
		PasswordConfirmation: m.register.value(fieldConfirmation),
		HospitalCode:         strings.TrimSpace(m.register.value(fieldHospitalCode)),
	}
	if err := auth.ValidateRegister(req); err != nil {
		m.register.fail(err)
		return m, nil
	}

	m.register.errs, m.register.err, m.register.busy = nil, "", true
	m.spinner.SetMessage("Creating account")
	a := m.deps.Auth
	start := m.spinner.Start()
	return m, tea.Batch(start, m.call(func(ctx context.Context) tea.Msg {
		return authResultMsg{err: a.Register(ctx, req)}
	}))
}

// handleAuthResult finishes a submit. On success the session moves to the
// chat list, which is a no-op when an attached AuthChangedMsg got there first.
func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.login.busy, m.register.busy = false, false
	if msg.err == nil {
		return m.handleAuthChanged(m.deps.Auth.State())
	}
	m.spinner.Stop()
	m.log.Info().Err(msg.err).Str("screen", m.screen.String()).Msg("sign-in failed")
	switch m.screen {
	case ScreenLogin:
		m.login.fail(msg.err)
		m.login.setValue(fieldPassword, "")
	case ScreenRegister:
		m.register.fail(msg.err)
	}
	return m, nil
}

func (m Model) viewAuthForm() string {
	t := m.theme
	var title, subtitle, hint string
	var body string
	var busy bool
	if m.screen == ScreenRegister {
		title, subtitle = "Create account", "Join your hospital's chat"
		body, busy = m.register.view(t, m.width), m.register.busy
		hint = "Already have an account? " + t.Link.Render("ctrl+n") + " to sign in"
	} else {
		title, subtitle = "Welcome back", "Sign in to continue"
		body, busy = m.login.view(t, m.width), m.login.busy
		hint = "No account yet? " + t.Link.Render("ctrl+n") + " to register"
	}

	parts := []string{
		t.ModalTitle.Render(title),
		t.Muted.Render(subtitle),
		"",
		body,
		"",
	}
	if busy {
		parts = append(parts, m.spinner.View(t))
	} else {
		parts = append(parts, t.ButtonActive.Render("enter")+" "+t.Muted.Render("submit"), t.Muted.Render(hint))
	}
	card := t.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
