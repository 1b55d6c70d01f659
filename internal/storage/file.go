// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// FileStore persists all keys in one JSON object. Every mutation rewrites the
// file with util.AtomicWriteFile, so a crash leaves either the old or the new
// document on disk.
type FileStore struct {
	path string

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created lazily on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: empty path")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, wrapErr("get", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, wrapErr("get", key, ErrClosed)
	}

	doc, err := s.read()
	if err != nil {
		return "", false, wrapErr("get", key, err)
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.mutate(ctx, "set", key, func(doc map[string]string) {
		doc[key] = value
	})
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	return s.mutate(ctx, "remove", key, func(doc map[string]string) {
		delete(doc, key)
	})
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FileStore) mutate(ctx context.Context, op, key string, fn func(map[string]string)) error {
	if err := ctx.Err(); err != nil {
		return wrapErr(op, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrapErr(op, key, ErrClosed)
	}

	doc, err := s.read()
	if err != nil {
		return wrapErr(op, key, err)
	}
	fn(doc)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wrapErr(op, key, err)
	}
	// The document holds the bearer token, so it is owner-only.
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return wrapErr(op, key, err)
	}
	return nil
}

// read loads the document; a missing file is an empty document.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	doc := make(map[string]string)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	// A document holding JSON null decodes to a nil map.
	if doc == nil {
		doc = make(map[string]string)
	}
	return doc, nil
}
