// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
)

type fakeBackend struct {
	resp      *api.AuthResponse
	err       error
	logoutErr error
	logouts   []string
	lastReg   api.RegisterRequest
}

func (f *fakeBackend) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	return f.resp, f.err
}

func (f *fakeBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	f.lastReg = req
	return f.resp, f.err
}

func (f *fakeBackend) Logout(ctx context.Context, token string) error {
	f.logouts = append(f.logouts, token)
	return f.logoutErr
}

type failingStore struct {
	*storage.MemoryStore
	failKey string
}

func (s *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == s.failKey {
		return "", false, errors.New("read failed")
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if key == s.failKey {
		return errors.New("write failed")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func okResponse() *api.AuthResponse {
	return &api.AuthResponse{
		Token: "tok-1",
		User:  api.User{ID: 42, Name: "Ada", Email: "ada@h.org", HospitalID: 9, StreamToken: "st"},
	}
}

func TestLoadStored_NothingSaved(t *testing.T) {
	c := NewController(&fakeBackend{}, storage.NewMemoryStore(), zerolog.Nop())
	assert.True(t, c.State().IsLoading)

	c.LoadStored(context.Background())
	s := c.State()
	assert.False(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
}

func TestLoginPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	backend := &fakeBackend{resp: okResponse()}

	c := NewController(backend, store, zerolog.Nop())
	c.LoadStored(ctx)

	var states []State
	c.Subscribe(func(s State) { states = append(states, s) })

	require.NoError(t, c.Login(ctx, " ada@h.org ", "secret1"))
	require.NotEmpty(t, states)
	assert.True(t, states[0].IsLoading)
	last := states[len(states)-1]
	assert.True(t, last.IsAuthenticated)
	assert.False(t, last.IsLoading)

	id, token, ok := c.Credentials()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "tok-1", token)

	restarted := NewController(backend, store, zerolog.Nop())
	restarted.LoadStored(ctx)
	s := restarted.State()
	require.True(t, s.IsAuthenticated)
	assert.Equal(t, "Ada", s.User.Name)
	assert.Equal(t, "st", s.User.StreamToken)
}

func TestLogin_BackendErrorReturned(t *testing.T) {
	rej := &api.ServerRejected{Status: 401, Message: "Invalid credentials"}
	c := NewController(&fakeBackend{err: rej}, storage.NewMemoryStore(), zerolog.Nop())

	err := c.Login(context.Background(), "a@b.co", "x")
	assert.Same(t, rej, err)
	assert.False(t, c.State().IsAuthenticated)
	assert.False(t, c.State().IsLoading)
}

func TestLogin_PersistFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failKey: storage.KeyUserData}
	c := NewController(&fakeBackend{resp: okResponse()}, store, zerolog.Nop())

	err := c.Login(ctx, "ada@h.org", "secret1")
	require.ErrorIs(t, err, ErrPersistAuth)
	assert.False(t, c.State().IsAuthenticated)

	_, ok, _ := store.MemoryStore.Get(ctx, storage.KeyAuthToken)
	assert.False(t, ok, "token without user record is rolled back")
}

func TestLoadStored_CorruptUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "tok"))
	require.NoError(t, store.Set(ctx, storage.KeyUserData, "{not json"))

	c := NewController(&fakeBackend{}, store, zerolog.Nop())
	c.LoadStored(ctx)
	assert.False(t, c.State().IsAuthenticated)
	assert.False(t, c.State().IsLoading)
}

func TestLoadStored_ReadFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failKey: storage.KeyAuthToken}
	c := NewController(&fakeBackend{}, store, zerolog.Nop())
	c.LoadStored(context.Background())
	assert.False(t, c.State().IsAuthenticated)
	assert.False(t, c.State().IsLoading)
}

func TestLoadStored_TokenOnly(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "tok"))

	c := NewController(&fakeBackend{}, store, zerolog.Nop())
	c.LoadStored(ctx)
	assert.False(t, c.State().IsAuthenticated)
}

func TestLogout_AlwaysClears(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	backend := &fakeBackend{resp: okResponse(), logoutErr: &api.NetworkError{Op: "POST /logout", Err: errors.New("offline")}}

	c := NewController(backend, store, zerolog.Nop())
	require.NoError(t, c.Login(ctx, "ada@h.org", "secret1"))

	c.Logout(ctx)
	assert.Equal(t, []string{"tok-1"}, backend.logouts)
	assert.False(t, c.State().IsAuthenticated)
	_, _, ok := c.Credentials()
	assert.False(t, ok)

	for _, key := range []string{storage.KeyAuthToken, storage.KeyUserData} {
		_, present, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, present, key)
	}
}

func TestLogout_SignedOutSkipsServer(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, storage.NewMemoryStore(), zerolog.Nop())
	c.Logout(context.Background())
	assert.Empty(t, backend.logouts)
}

func TestRegister_TrimsFields(t *testing.T) {
	backend := &fakeBackend{resp: okResponse()}
	c := NewController(backend, storage.NewMemoryStore(), zerolog.Nop())

	require.NoError(t, c.Register(context.Background(), api.RegisterRequest{
		Name: " Ada ", Email: " ada@h.org", Password: "Secret12", PasswordConfirmation: "Secret12", HospitalCode: " GEN ",
	}))
	assert.Equal(t, "Ada", backend.lastReg.Name)
	assert.Equal(t, "GEN", backend.lastReg.HospitalCode)
	assert.True(t, c.State().IsAuthenticated)
}

func TestState_ReturnsCopy(t *testing.T) {
	c := NewController(&fakeBackend{resp: okResponse()}, storage.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, c.Login(context.Background(), "ada@h.org", "secret1"))

	s := c.State()
	s.User.Name = "mutated"
	assert.Equal(t, "Ada", c.State().User.Name)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin(api.LoginRequest{Email: "a@b.co", Password: "secret"}))

	err := ValidateLogin(api.LoginRequest{Email: "nope", Password: "abc"})
	var fe FormErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Please enter a valid email address", fe["email"])
	assert.Equal(t, "Password must be at least 6 characters", fe["password"])
}

func TestValidateRegister(t *testing.T) {
	valid := api.RegisterRequest{
		Name: "Ada", Email: "ada@h.org", Password: "Secret12", PasswordConfirmation: "Secret12", HospitalCode: "GEN",
	}
	assert.NoError(t, ValidateRegister(valid))

	tests := []struct {
		name   string
		mutate func(*api.RegisterRequest)
		field  string
		msg    string
	}{
		{"short name", func(r *api.RegisterRequest) { r.Name = "A" }, "name", "Name must be at least 2 characters"},
		{"weak password", func(r *api.RegisterRequest) { r.Password, r.PasswordConfirmation = "lowercase1", "lowercase1" }, "password", "Password must contain uppercase, lowercase, and number"},
		{"mismatch", func(r *api.RegisterRequest) { r.PasswordConfirmation = "Secret13" }, "password_confirmation", "Passwords do not match"},
		{"missing code", func(r *api.RegisterRequest) { r.HospitalCode = " " }, "hospital_code", "Hospital code is required"},
		{"short code", func(r *api.RegisterRequest) { r.HospitalCode = "GE" }, "hospital_code", "Hospital code must be at least 3 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			var fe FormErrors
			require.True(t, errors.As(ValidateRegister(req), &fe))
			assert.Equal(t, tt.msg, fe[tt.field])
		})
	}
}
