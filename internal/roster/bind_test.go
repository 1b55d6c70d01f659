// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package roster

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
)

type stubBackend struct{ next api.User }

func (b *stubBackend) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{Token: "tok", User: b.next}, nil
}

func (b *stubBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{Token: "tok", User: b.next}, nil
}

func (b *stubBackend) Logout(ctx context.Context, token string) error { return nil }

func TestBindAuth_ClearsOnLogoutAndSwitch(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{next: api.User{ID: 42, Name: "Ada"}}
	a := auth.NewController(backend, storage.NewMemoryStore(), zerolog.Nop())
	a.LoadStored(ctx)
	require.NoError(t, a.Login(ctx, "ada@h.org", "secret1"))

	fetcher := &fakeFetcher{}
	fetcher.push(result{members: members("Grace", "Linus")})
	c := NewController(fetcher, a, zerolog.Nop())
	unbind := BindAuth(c, a)
	defer unbind()

	require.NoError(t, c.Refresh(ctx, false))
	assert.Len(t, c.Snapshot().Entries, 2)
	assert.Equal(t, []string{"tok"}, fetcher.tokens)

	a.Logout(ctx)
	assert.Empty(t, c.Snapshot().Entries)
	assert.False(t, c.IsCacheValid(42))

	fetcher.push(result{members: members("Grace")})
	require.NoError(t, a.Login(ctx, "ada@h.org", "secret1"))
	require.NoError(t, c.Refresh(ctx, false))
	assert.Len(t, c.Snapshot().Entries, 1)

	backend.next = api.User{ID: 7, Name: "Bob"}
	require.NoError(t, a.Login(ctx, "bob@h.org", "secret1"))
	assert.Empty(t, c.Snapshot().Entries, "switching account clears the cache")
}
