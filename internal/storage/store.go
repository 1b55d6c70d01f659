// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Keys used by chatrevamp. Theme and auth live in separate namespaces.
const (
	KeyTheme     = "@chatrevamp_theme"
	KeyAuthToken = "@chatrevamp_auth_token"
	KeyUserData  = "@chatrevamp_user_data"
)

// ErrStorage wraps every backend failure so callers can match on it without
// knowing which backend is in use.
var ErrStorage = errors.New("storage failure")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is the key-value collaborator shared by the controllers.
// A missing key is not an error: Get reports ok=false.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the backend named by kind rooted at path.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

func wrapErr(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrStorage, op, key, err)
}
