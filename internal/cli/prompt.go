// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Interactive input for login and register.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C or EOF.
var ErrAborted = errors.New("aborted")

// Prompter asks the user for values.
type Prompter interface {
	// Line reads a visible value. def is returned for an empty answer.
	Line(prompt, def string) (string, error)
	// Password reads a value without echo.
	Password(prompt string) (string, error)
	Close() error
}

// TermPrompter reads from the controlling terminal with line editing.
type TermPrompter struct {
	line *liner.State
	out  io.Writer
}

// NewTermPrompter takes over stdin until Close.
func NewTermPrompter() *TermPrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &TermPrompter{line: line, out: os.Stdout}
}

// Line reads one line with history and editing keys.
func (p *TermPrompter) Line(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	input, err := p.line.Prompt(prompt + ": ")
	if err != nil {
		return "", promptErr(err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	p.line.AppendHistory(input)
	return input, nil
}

// Password reads without echo when stdin is a terminal and falls back to a
// plain line for piped input.
func (p *TermPrompter) Password(prompt string) (string, error) {
	if !IsTTY() {
		input, err := p.line.Prompt(prompt + ": ")
		if err != nil {
			return "", promptErr(err)
		}
		return input, nil
	}

	fmt.Fprint(p.out, prompt+": ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// Close restores the terminal.
func (p *TermPrompter) Close() error {
	return p.line.Close()
}

func promptErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return ErrAborted
	}
	return err
}
