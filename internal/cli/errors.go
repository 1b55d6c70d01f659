// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for the commands.
//
// Handlers always return errors; main displays them once and picks the
// exit code.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/config"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitTimeoutError = 8
	ExitAborted      = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError means the command line itself was wrong.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return e.Reason + "\nExample: " + e.Example
	}
	return e.Reason
}

// ErrNotSignedIn is returned by commands that need a saved session.
var ErrNotSignedIn = errors.New("not signed in; run 'chatrevamp login' first")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON in jsonMode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), describe(err))
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"success":    false,
		"error":      describe(err),
		"error_type": errorType(err),
	}

	var form auth.FormErrors
	var rejected *api.ServerRejected
	switch {
	case errors.As(err, &form):
		output["fields"] = map[string]string(form)
	case errors.As(err, &rejected):
		output["status"] = rejected.Status
		if len(rejected.Errors) > 0 {
			output["fields"] = rejected.Errors
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// describe is the message shown to users.
func describe(err error) string {
	var form auth.FormErrors
	var rejected *api.ServerRejected
	switch {
	case errors.As(err, &form):
		return "Please fix the following:\n  " + strings.Join(strings.Split(form.Error(), "; "), "\n  ")
	case errors.As(err, &rejected):
		return rejected.Detail()
	case errors.Is(err, api.ErrNetwork):
		return "Cannot reach the server. Check your connection and the api.base_url setting."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to answer."
	}
	return err.Error()
}

func errorType(err error) string {
	var usage *UsageError
	var form auth.FormErrors
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.As(err, &form):
		return "validation_error"
	case errors.Is(err, api.ErrRejected):
		return "server_rejected"
	case errors.Is(err, api.ErrNetwork):
		return "network_error"
	case errors.Is(err, api.ErrMalformed):
		return "malformed_response"
	}
	return "generic_error"
}

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var form auth.FormErrors
	var tty *TTYRequiredError
	var invalid config.ValidateErrors
	var rejected *api.ServerRejected

	switch {
	case errors.Is(err, ErrAborted):
		return ExitAborted
	case errors.As(err, &usage), errors.As(err, &form), errors.As(err, &tty):
		return ExitUsageError
	case errors.As(err, &invalid):
		return ExitConfigError
	case errors.Is(err, ErrNotSignedIn), errors.Is(err, roster.ErrNoIdentity), errors.Is(err, auth.ErrPersistAuth):
		return ExitAuthError
	case errors.As(err, &rejected):
		if rejected.Status == 401 || rejected.Status == 403 {
			return ExitAuthError
		}
		return ExitGeneralError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, api.ErrNetwork):
		return ExitNetworkError
	}
	return ExitGeneralError
}
