// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - What the commands may assume about stdin and stdout.
//
// Prompts need a terminal on stdin and colors need one on stdout. Piped
// output gets neither, and NO_COLOR always wins.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Table widths used when the terminal cannot be measured or is tiny.
const (
	fallbackWidth = 80
	narrowestRow  = 40
)

// Console describes the process's standard streams once per run.
type Console struct {
	Interactive bool // stdin is a terminal, so prompts can hide input
	Styled      bool // stdout is a terminal
	Profile     termenv.Profile
}

var (
	console     Console
	consoleOnce sync.Once
)

// DetectConsole inspects the standard streams and the color environment.
// The answer is cached; streams do not change terminal-ness mid-run.
func DetectConsole() Console {
	consoleOnce.Do(func() {
		console = Console{
			Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			Styled:      term.IsTerminal(int(os.Stdout.Fd())),
		}
		console.Profile = colorProfile(console.Styled, os.Getenv)
	})
	return console
}

// colorProfile applies the NO_COLOR and FORCE_COLOR conventions
// (https://no-color.org/) over terminal detection.
func colorProfile(styled bool, getenv func(string) string) termenv.Profile {
	switch {
	case getenv("NO_COLOR") != "":
		return termenv.Ascii
	case getenv("FORCE_COLOR") != "", styled:
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}

// IsTTY reports whether stdin is a terminal.
func IsTTY() bool { return DetectConsole().Interactive }

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool { return DetectConsole().Styled }

// GetTerminalWidth measures stdout on every call so the member table follows
// resizes between commands in the same shell.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		return fallbackWidth
	case width < narrowestRow:
		return narrowestRow
	}
	return width
}

// TTYRequiredError is returned when a command needs to prompt but has no
// prompter.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation == "" {
		return "no terminal to prompt on"
	}
	return "no terminal to prompt on; cannot " + e.Operation
}
