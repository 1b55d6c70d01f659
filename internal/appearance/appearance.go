// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package appearance

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
)

const (
	Dark  = "dark"
	Light = "light"
)

// Terminal probes the terminal background color.
func Terminal() string {
	if termenv.HasDarkBackground() {
		return Dark
	}
	return Light
}

// ReadFile returns the scheme recorded in path, normalised to lower case.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Normalize(string(data)), nil
}

// Normalize trims and lower-cases a raw scheme report.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
