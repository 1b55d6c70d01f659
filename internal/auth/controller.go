// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
)

// ErrPersistAuth is returned when a successful sign-in could not be saved.
// The session is not established in that case.
var ErrPersistAuth = errors.New("failed to save authentication data")

// Backend is the subset of the REST client the controller needs.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context, token string) error
}

// State is a read-only view of the session.
type State struct {
	User            *api.User
	Token           string
	IsLoading       bool
	IsAuthenticated bool
}

// UserID returns the signed-in user's id, or 0.
func (s State) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

// Listener receives the state after every change.
type Listener func(State)

// Controller owns the session.
type Controller struct {
	backend Backend
	store   storage.Store
	log     zerolog.Logger

	mu      sync.RWMutex
	user    *api.User
	token   string
	loading bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewController creates a signed-out controller that is loading until
// LoadStored completes.
func NewController(backend Backend, store storage.Store, log zerolog.Logger) *Controller {
	return &Controller{
		backend:   backend,
		store:     store,
		log:       log.With().Str("component", "auth").Logger(),
		loading:   true,
		listeners: make(map[int]Listener),
	}
}

// LoadStored restores a saved session. Any failure leaves the controller
// signed out; IsLoading is false afterwards.
func (c *Controller) LoadStored(ctx context.Context) {
	user, token, err := c.readStored(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load stored auth")
	}

	c.mu.Lock()
	if err == nil && user != nil && token != "" {
		c.user, c.token = user, token
	}
	c.loading = false
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) readStored(ctx context.Context) (*api.User, string, error) {
	token, okToken, err := c.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, "", err
	}
	raw, okUser, err := c.store.Get(ctx, storage.KeyUserData)
	if err != nil {
		return nil, "", err
	}
	if !okToken || !okUser || token == "" || raw == "" {
		return nil, "", nil
	}

	var user api.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, "", fmt.Errorf("decode stored user: %w", err)
	}
	return &user, token, nil
}

// Login signs in. Backend errors are returned unchanged so forms can show
// the server's message.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	req := api.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	return c.signIn(ctx, "login", func() (*api.AuthResponse, error) {
		return c.backend.Login(ctx, req)
	})
}

// Register creates an account and signs in.
func (c *Controller) Register(ctx context.Context, req api.RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.HospitalCode = strings.TrimSpace(req.HospitalCode)
	return c.signIn(ctx, "register", func() (*api.AuthResponse, error) {
		return c.backend.Register(ctx, req)
	})
}

func (c *Controller) signIn(ctx context.Context, op string, call func() (*api.AuthResponse, error)) error {
	c.setLoading(true)
	defer c.setLoading(false)

	resp, err := call()
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("authentication failed")
		return err
	}

	if err := c.persist(ctx, resp.Token, resp.User); err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("failed to store auth")
		return fmt.Errorf("%w: %v", ErrPersistAuth, err)
	}

	user := resp.User
	c.mu.Lock()
	c.user, c.token = &user, resp.Token
	c.mu.Unlock()

	c.log.Info().Int64("user_id", user.ID).Str("op", op).Msg("signed in")
	return nil
}

func (c *Controller) persist(ctx context.Context, token string, user api.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.KeyUserData, string(data)); err != nil {
		// Do not leave a token without its user record.
		_ = c.store.Remove(ctx, storage.KeyAuthToken)
		return err
	}
	return nil
}

// Logout tells the server (errors are logged) and then always clears the
// stored and in-memory session.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		if err := c.backend.Logout(ctx, token); err != nil {
			c.log.Warn().Err(err).Msg("logout request failed")
		}
	}

	for _, key := range []string{storage.KeyAuthToken, storage.KeyUserData} {
		if err := c.store.Remove(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to clear auth")
		}
	}

	c.mu.Lock()
	c.user, c.token = nil, ""
	c.mu.Unlock()

	c.log.Info().Msg("signed out")
	c.notify()
}

// State returns the current session.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	s := State{Token: c.token, IsLoading: c.loading}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	s.IsAuthenticated = s.User != nil && s.Token != ""
	return s
}

// Credentials returns the current user id and bearer token.
func (c *Controller) Credentials() (int64, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil || c.token == "" {
		return 0, "", false
	}
	return c.user.ID, c.token, true
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
	c.notify()
}

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

func (c *Controller) notify() {
	state := c.State()

	c.listenersMu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
