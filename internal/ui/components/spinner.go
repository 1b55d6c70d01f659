// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading indicator with a message.
type Spinner struct {
	spinner  spinner.Model
	message  string
	isActive bool
}

// NewSpinner creates an inactive ASCII line spinner.
func NewSpinner(message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return Spinner{spinner: s, message: message}
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and returns the command that drives it.
func (s *Spinner) Start() tea.Cmd {
	if s.isActive {
		return nil
	}
	s.isActive = true
	return s.spinner.Tick
}

// Tick returns the command that advances an already started spinner.
func (s *Spinner) Tick() tea.Cmd {
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is currently running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Update advances the animation. Ticks for an inactive spinner are dropped,
// which ends the tick loop.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner, or nothing when inactive.
func (s Spinner) View(t *styles.Theme) string {
	if !s.isActive {
		return ""
	}
	out := t.Spinner.Render(s.spinner.View())
	if s.message != "" {
		out += " " + t.Muted.Render(s.message)
	}
	return out
}
