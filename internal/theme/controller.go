// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package theme

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/storage"
)

// Snapshot is the resolved theme at one instant.
type Snapshot struct {
	Mode    Mode
	IsDark  bool
	Palette Palette
}

// Listener receives the snapshot after every resolved-state transition.
type Listener func(Snapshot)

// Controller owns the theme preference and the last OS scheme report.
type Controller struct {
	store storage.Store
	log   zerolog.Logger

	mu       sync.RWMutex
	mode     Mode
	osScheme string
	// chosen is set once SetTheme runs, so a slow Initialize cannot
	// overwrite a choice the user already made.
	chosen bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	// persistMu orders writes so the stored tag ends equal to the latest mode.
	persistMu sync.Mutex
	pending   sync.WaitGroup
}

// NewController creates a controller in ModeSystem with a light OS scheme.
// Call Initialize to load the stored preference.
func NewController(store storage.Store, log zerolog.Logger) *Controller {
	return &Controller{
		store:     store,
		log:       log.With().Str("component", "theme").Logger(),
		mode:      ModeSystem,
		listeners: make(map[int]Listener),
	}
}

// Initialize loads the stored preference. Absent, unrecognised or unreadable
// values leave ModeSystem in place.
func (c *Controller) Initialize(ctx context.Context) {
	raw, ok, err := c.store.Get(ctx, storage.KeyTheme)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load theme preference")
		return
	}
	if !ok {
		c.log.Debug().Msg("no saved theme, using system")
		return
	}
	mode := Mode(raw)
	if !mode.Valid() {
		c.log.Warn().Str("stored", raw).Msg("ignoring unrecognised theme preference")
		return
	}

	c.mu.Lock()
	if c.chosen {
		c.mu.Unlock()
		return
	}
	before := c.snapshotLocked()
	c.mode = mode
	after := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().Str("mode", string(mode)).Msg("theme preference loaded")
	c.notifyIfChanged(before, after)
}

// SetTheme switches the preference. Readers see the new palette before the
// tag is written in the background; a failed write is logged and not rolled
// back. Invalid modes are ignored. Call Wait before exiting to flush the write.
func (c *Controller) SetTheme(ctx context.Context, mode Mode) {
	if !mode.Valid() {
		c.log.Warn().Str("mode", string(mode)).Msg("ignoring invalid theme mode")
		return
	}

	c.mu.Lock()
	before := c.snapshotLocked()
	c.mode = mode
	c.chosen = true
	after := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyIfChanged(before, after)

	// The write outlives the caller's context; shutdown waits for it instead.
	ctx = context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.persist(ctx)
	}()
}

// Wait blocks until every preference write started by SetTheme has finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

func (c *Controller) persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	mode := c.mode
	c.mu.RUnlock()

	if err := c.store.Set(ctx, storage.KeyTheme, string(mode)); err != nil {
		c.log.Warn().Err(err).Str("mode", string(mode)).Msg("failed to save theme preference")
	}
}

// SetSystemScheme records the OS appearance. Only "dark" resolves dark.
// Listeners are notified only if the rendered palette changes, which can
// happen only in ModeSystem.
func (c *Controller) SetSystemScheme(scheme string) {
	c.mu.Lock()
	before := c.snapshotLocked()
	c.osScheme = scheme
	after := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyIfChanged(before, after)
}

// Snapshot returns the current {Mode, IsDark, Palette}.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Mode returns the current preference.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Controller) snapshotLocked() Snapshot {
	dark := Resolve(c.mode, c.osScheme)
	return Snapshot{Mode: c.mode, IsDark: dark, Palette: PaletteFor(dark)}
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

func (c *Controller) notifyIfChanged(before, after Snapshot) {
	if before.Mode == after.Mode && before.IsDark == after.IsDark {
		return
	}

	c.listenersMu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(after)
	}
}
