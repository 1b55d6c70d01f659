// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistent key-value store chatrevamp keeps
// its preferences and session in.
//
// Every backend implements Store:
//
//	Get(ctx, key)        -> value, ok, err
//	Set(ctx, key, value) -> err
//	Remove(ctx, key)     -> err
//
// # Backends
//
//   - FileStore: a single JSON document rewritten atomically on each change
//   - SQLiteStore: a kv table in a SQLite database (pure Go driver)
//   - MemoryStore: process-local map, used by tests and --ephemeral runs
//
// Each controller owns a disjoint key namespace (see the Key* constants), so
// callers never coordinate access to the same key.
//
// # Storage Location
//
// By default the file backend lives at ~/.chatrevamp/state.json and the
// SQLite backend at ~/.chatrevamp/state.db.
package storage
