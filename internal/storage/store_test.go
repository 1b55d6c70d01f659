// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// backends returns one fresh instance of every backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		BackendFile:   file,
		BackendSQLite: sqlite,
		BackendMemory: NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

// =============================================================================
// CONTRACT TESTS (ALL BACKENDS)
// =============================================================================

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(context.Background(), KeyTheme)
			require.NoError(t, err)
			require.False(t, ok)
			require.Empty(t, v)
		})
	}
}

func TestStore_SetGetOverwriteRemove(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
			v, ok, err := s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "dark", v)

			require.NoError(t, s.Set(ctx, KeyTheme, "light"))
			v, _, _ = s.Get(ctx, KeyTheme)
			require.Equal(t, "light", v)

			require.NoError(t, s.Remove(ctx, KeyTheme))
			_, ok, err = s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			require.False(t, ok)

			// Removing an absent key is not an error.
			require.NoError(t, s.Remove(ctx, KeyTheme))
		})
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, KeyAuthToken, "tok"))
			require.NoError(t, s.Set(ctx, KeyUserData, `{"id":1}`))
			require.NoError(t, s.Remove(ctx, KeyAuthToken))

			v, ok, err := s.Get(ctx, KeyUserData)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `{"id":1}`, v)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range []string{BackendFile, BackendMemory} {
		s := backends(t)[name]
		err := s.Set(ctx, KeyTheme, "dark")
		require.Error(t, err, name)
		require.True(t, errors.Is(err, ErrStorage), name)
	}
}

// =============================================================================
// BACKEND-SPECIFIC TESTS
// =============================================================================

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyTheme, "system"))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "system", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), KeyTheme)
	require.ErrorIs(t, err, ErrStorage)
}

func TestFileStore_NullDocumentIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
	got, ok, err := s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", got)
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyAuthToken, "abc"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	v, ok, err := second.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", v)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	err := s.Set(context.Background(), KeyTheme, "dark")
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorContains(t, err, ErrClosed.Error())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open("SQLite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	s.Close()

	s, err = Open(BackendMemory, "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	_, err = Open("redis", "")
	require.Error(t, err)
}
