// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
)

type fakeConnector struct {
	mu          sync.Mutex
	user        int64
	connects    []int64
	disconnects int
	err         error
	// gate, when set, blocks Connect until closed.
	gate chan struct{}
}

func (f *fakeConnector) Connect(ctx context.Context, userID int64, token string) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, userID)
	if f.err != nil {
		return f.err
	}
	f.user = userID
	return nil
}

func (f *fakeConnector) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.user = 0
	return nil
}

func (f *fakeConnector) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user != 0
}

func (f *fakeConnector) UserID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeConnector) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects), f.disconnects
}

func signedIn(id int64, stream string) auth.State {
	return auth.State{
		User:            &api.User{ID: id, Name: "U", StreamToken: stream},
		Token:           "tok",
		IsAuthenticated: true,
	}
}

func TestSync_ConnectsOnceWhenSignedIn(t *testing.T) {
	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())

	var seen []Status
	s.Subscribe(func(st Status) { seen = append(seen, st) })

	s.Sync(context.Background(), signedIn(1, "stream"))
	s.Sync(context.Background(), signedIn(1, "stream"))

	connects, _ := fc.counts()
	assert.Equal(t, 1, connects)
	assert.True(t, s.IsConnected())
	assert.False(t, s.IsConnecting())

	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsConnecting)
	assert.False(t, seen[0].IsConnected)
	assert.False(t, seen[1].IsConnecting)
	assert.True(t, seen[1].IsConnected)
}

func TestSync_NoStreamTokenStaysDisconnected(t *testing.T) {
	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())

	s.Sync(context.Background(), signedIn(1, ""))
	s.Sync(context.Background(), auth.State{})

	connects, disconnects := fc.counts()
	assert.Zero(t, connects)
	assert.Zero(t, disconnects)
	assert.False(t, s.IsConnected())
}

func TestSync_SignOutDisconnects(t *testing.T) {
	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())

	s.Sync(context.Background(), signedIn(1, "stream"))
	s.Sync(context.Background(), auth.State{})

	_, disconnects := fc.counts()
	assert.Equal(t, 1, disconnects)
	assert.False(t, s.IsConnected())
}

func TestSync_UserSwitchReconnects(t *testing.T) {
	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())

	s.Sync(context.Background(), signedIn(1, "a"))
	s.Sync(context.Background(), signedIn(2, "b"))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Equal(t, []int64{1, 2}, fc.connects)
	assert.Equal(t, int64(2), fc.user)
}

func TestSync_ConnectFailureRecorded(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeConnector{err: boom}
	s := NewSession(fc, zerolog.Nop())

	s.Sync(context.Background(), signedIn(1, "stream"))
	st := s.Status()
	assert.False(t, st.IsConnected)
	assert.False(t, st.IsConnecting)
	assert.ErrorIs(t, st.Err, boom)

	// Signing out clears the failure.
	s.Sync(context.Background(), auth.State{})
	assert.NoError(t, s.Status().Err)
}

func TestSync_IsConnectingDuringConnect(t *testing.T) {
	fc := &fakeConnector{gate: make(chan struct{})}
	s := NewSession(fc, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		s.Sync(context.Background(), signedIn(1, "stream"))
		close(done)
	}()

	require.Eventually(t, s.IsConnecting, time.Second, 5*time.Millisecond)
	assert.False(t, s.IsConnected())

	close(fc.gate)
	<-done
	assert.False(t, s.IsConnecting())
	assert.True(t, s.IsConnected())
}

func TestClose_Disconnects(t *testing.T) {
	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())
	s.Sync(context.Background(), signedIn(1, "stream"))

	s.Close()
	assert.False(t, s.IsConnected())
}

type stubBackend struct {
	user api.User
}

func (b *stubBackend) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{User: b.user, Token: "tok"}, nil
}

func (b *stubBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{User: b.user, Token: "tok"}, nil
}

func (b *stubBackend) Logout(ctx context.Context, token string) error { return nil }

func TestBindAuth_FollowsLoginAndLogout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := auth.NewController(&stubBackend{user: api.User{ID: 5, StreamToken: "s"}}, storage.NewMemoryStore(), zerolog.Nop())
	a.LoadStored(ctx)

	fc := &fakeConnector{}
	s := NewSession(fc, zerolog.Nop())
	stop := BindAuth(ctx, s, a)
	defer stop()

	require.NoError(t, a.Login(ctx, "a@b.org", "pw"))
	require.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(5), fc.UserID())

	a.Logout(ctx)
	require.Eventually(t, func() bool { return !s.IsConnected() }, time.Second, 5*time.Millisecond)

	stop()
	stop()
}
