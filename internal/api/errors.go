// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNetwork matches *NetworkError.
	ErrNetwork = errors.New("network error")

	// ErrRejected matches *ServerRejected.
	ErrRejected = errors.New("request rejected")

	// ErrMalformed matches *MalformedResponse.
	ErrMalformed = errors.New("malformed response")
)

// NetworkError means the request could not complete: DNS, connect, TLS,
// timeout, cancellation, or a body cut short.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerRejected is a well-formed failure answer from the server. Error()
// is the server's message so it can be shown to users as-is.
type ServerRejected struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *ServerRejected) Error() string {
	return e.Message
}

func (e *ServerRejected) Is(target error) bool { return target == ErrRejected }

// FieldErrors flattens validation errors into "field: message" lines,
// sorted by field.
func (e *ServerRejected) FieldErrors() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range e.Errors[f] {
			out = append(out, f+": "+msg)
		}
	}
	return out
}

// Detail is Message followed by any field errors.
func (e *ServerRejected) Detail() string {
	lines := e.FieldErrors()
	if len(lines) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(lines, "\n")
}

// MalformedResponse means the body did not have the expected shape.
type MalformedResponse struct {
	Status int
	Err    error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("malformed response (HTTP %d): %v", e.Status, e.Err)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

func (e *MalformedResponse) Is(target error) bool { return target == ErrMalformed }
