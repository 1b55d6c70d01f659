// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/auth"
)

// Connector is the part of Client a Session drives.
type Connector interface {
	Connect(ctx context.Context, userID int64, token string) error
	Disconnect() error
	Connected() bool
	UserID() int64
}

// Status is a read-only view of the session.
type Status struct {
	IsConnected  bool
	IsConnecting bool
	// Err is the last connect failure, cleared by the next success or by
	// signing out.
	Err error
}

// StatusListener receives the status after every change.
type StatusListener func(Status)

// Session keeps a Connector in step with the auth session.
type Session struct {
	conn Connector
	log  zerolog.Logger

	// syncMu serializes Sync so connects and disconnects never interleave.
	syncMu sync.Mutex

	mu         sync.RWMutex
	connecting bool
	lastErr    error

	listenersMu sync.Mutex
	listeners   map[int]StatusListener
	nextID      int
}

// NewSession creates a session around conn.
func NewSession(conn Connector, log zerolog.Logger) *Session {
	return &Session{
		conn:      conn,
		log:       log.With().Str("component", "session").Logger(),
		listeners: make(map[int]StatusListener),
	}
}

// Sync connects when st is signed in with a stream token and disconnects
// otherwise.
func (s *Session) Sync(ctx context.Context, st auth.State) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if !st.IsAuthenticated || st.User == nil || st.User.StreamToken == "" {
		s.disconnect()
		return
	}
	if s.conn.Connected() && s.conn.UserID() == st.User.ID {
		return
	}

	s.mu.Lock()
	s.connecting = true
	s.mu.Unlock()
	s.notify()

	err := s.conn.Connect(ctx, st.User.ID, st.User.StreamToken)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", st.User.ID).Msg("chat connection failed")
	}

	s.mu.Lock()
	s.connecting = false
	s.lastErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *Session) disconnect() {
	s.mu.Lock()
	hadErr := s.lastErr != nil
	s.lastErr = nil
	s.mu.Unlock()

	if !s.conn.Connected() {
		if hadErr {
			s.notify()
		}
		return
	}
	if err := s.conn.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("chat disconnection failed")
	}
	s.notify()
}

// Close disconnects regardless of auth state.
func (s *Session) Close() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.disconnect()
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		IsConnected:  s.conn.Connected(),
		IsConnecting: s.connecting,
		Err:          s.lastErr,
	}
}

// IsConnected reports whether the chat connection is open.
func (s *Session) IsConnected() bool { return s.conn.Connected() }

// IsConnecting reports whether a connect is in progress.
func (s *Session) IsConnecting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connecting
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn StatusListener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Session) notify() {
	st := s.Status()

	s.listenersMu.Lock()
	fns := make([]StatusListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// BindAuth follows a from a background goroutine until ctx ends or the
// returned function is called. Bursts of auth changes coalesce; each sync
// reads the latest auth state.
func BindAuth(ctx context.Context, s *Session, a *auth.Controller) func() {
	kick := make(chan struct{}, 1)
	stop := make(chan struct{})
	trigger := func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	}

	go func() {
		for {
			select {
			case <-kick:
				s.Sync(ctx, a.State())
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	trigger()
	unsubscribe := a.Subscribe(func(auth.State) { trigger() })

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(stop)
		})
	}
}
