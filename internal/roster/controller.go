// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package roster

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

// DefaultTTL is how long a fetched roster stays valid.
const DefaultTTL = 5 * time.Minute

// ErrNoIdentity is returned by Fetch when nobody is signed in.
var ErrNoIdentity = errors.New("no signed-in user")

// Entry is one roster member.
type Entry = api.Member

// Fetcher loads a roster from the backend.
type Fetcher interface {
	Members(ctx context.Context, userID int64, token string) ([]api.Member, error)
}

// Identity supplies the current user id and bearer token.
type Identity interface {
	Credentials() (userID int64, token string, ok bool)
}

// Snapshot is a read-only copy of the cache.
type Snapshot struct {
	Entries   []Entry
	IsLoading bool
	// Error is the message shown to users; empty when the last fetch succeeded.
	Error string
	// Err is the typed error behind Error, for logging and retry decisions.
	Err error
	// FetchedAt is zero when nothing has been fetched.
	FetchedAt time.Time
}

// Listener receives the snapshot after every state transition.
type Listener func(Snapshot)

// Option configures a Controller.
type Option func(*Controller)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the roster cache.
type Controller struct {
	fetcher  Fetcher
	identity Identity
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu        sync.RWMutex
	entries   []Entry
	owner     int64
	hasOwner  bool
	fetchedAt time.Time
	errMsg    string
	err       error
	inFlight  int
	// subject is the user the entries or the error belong to; it is set by
	// failed fetches too, unlike owner.
	subject    int64
	hasSubject bool
	// seen is the identity SetIdentity last reported as signed in.
	seen    int64
	hasSeen bool
	// generation is bumped by every clear; fetches started under an older
	// generation are discarded.
	generation uint64
	// version orders snapshots; listeners never receive one older than the
	// last they were given.
	version uint64

	deliverMu sync.Mutex
	delivered uint64

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewController creates an empty cache.
func NewController(fetcher Fetcher, identity Identity, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		identity:  identity,
		ttl:       DefaultTTL,
		now:       time.Now,
		log:       log.With().Str("component", "roster").Logger(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the cache lifetime.
func (c *Controller) TTL() time.Duration {
	return c.ttl
}

// =============================================================================
// FETCH
// =============================================================================

// Fetch loads the roster for userID unless a valid non-empty cache exists or,
// for unforced calls, another fetch is already running. The failure is
// returned and also recorded in the snapshot.
func (c *Controller) Fetch(ctx context.Context, userID int64, force bool) error {
	_, token, ok := c.identity.Credentials()
	if !ok {
		return ErrNoIdentity
	}

	c.mu.Lock()
	if !force && c.validLocked(userID) && len(c.entries) > 0 {
		c.mu.Unlock()
		c.log.Debug().Int64("user_id", userID).Msg("using cached hospital members")
		return nil
	}
	if !force && c.inFlight > 0 {
		c.mu.Unlock()
		c.log.Debug().Int64("user_id", userID).Msg("fetch already in flight, dropping")
		return nil
	}
	c.inFlight++
	c.errMsg, c.err = "", nil
	gen := c.generation
	snap, v := c.transitionLocked()
	c.mu.Unlock()
	c.notify(snap, v)

	members, err := c.fetcher.Members(ctx, userID, token)

	currentID, _, signedIn := c.identity.Credentials()

	c.mu.Lock()
	c.inFlight--
	switch {
	case gen != c.generation || !signedIn || currentID != userID:
		c.log.Debug().Int64("user_id", userID).Msg("discarding stale roster response")
	case err != nil:
		c.errMsg, c.err = describe(err), err
		c.subject, c.hasSubject = userID, true
		c.log.Warn().Err(err).Int64("user_id", userID).Msg("hospital members fetch failed")
	default:
		c.entries = members
		c.fetchedAt = c.now()
		c.owner, c.hasOwner = userID, true
		c.subject, c.hasSubject = userID, true
		c.errMsg, c.err = "", nil
		c.log.Debug().Int64("user_id", userID).Int("count", len(members)).Msg("hospital members fetched and cached")
	}
	snap, v = c.transitionLocked()
	c.mu.Unlock()
	c.notify(snap, v)

	return err
}

// Refresh fetches for the signed-in user. Without one it does nothing.
func (c *Controller) Refresh(ctx context.Context, force bool) error {
	userID, _, ok := c.identity.Credentials()
	if !ok {
		return nil
	}
	return c.Fetch(ctx, userID, force)
}

// describe turns a fetch error into the message shown to users.
func describe(err error) string {
	var rej *api.ServerRejected
	switch {
	case errors.As(err, &rej):
		return rej.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out. Check your connection and try again."
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, api.ErrNetwork):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, api.ErrMalformed):
		return "The server sent an unexpected response."
	default:
		return "Failed to fetch hospital members"
	}
}

// =============================================================================
// CACHE STATE
// =============================================================================

// IsCacheValid reports whether the cache belongs to userID and is within TTL.
func (c *Controller) IsCacheValid(userID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validLocked(userID)
}

func (c *Controller) validLocked(userID int64) bool {
	if !c.hasOwner || c.owner != userID || c.fetchedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.fetchedAt) < c.ttl
}

// ClearCache drops entries, FetchedAt, owner and error at once.
func (c *Controller) ClearCache() {
	c.mu.Lock()
	c.clearLocked()
	snap, v := c.transitionLocked()
	c.mu.Unlock()
	c.notify(snap, v)
}

func (c *Controller) clearLocked() {
	c.entries = nil
	c.fetchedAt = time.Time{}
	c.owner, c.hasOwner = 0, false
	c.subject, c.hasSubject = 0, false
	c.errMsg, c.err = "", nil
	c.generation++
}

// SetIdentity reacts to an auth change. The cache is cleared on sign-out,
// when the signed-in user changes, and when the cached entries or error
// belong to someone else.
func (c *Controller) SetIdentity(userID int64, ok bool) {
	c.mu.Lock()
	if ok {
		switched := c.hasSeen && c.seen != userID
		foreign := c.hasSubject && c.subject != userID
		c.seen, c.hasSeen = userID, true
		if !switched && !foreign {
			c.mu.Unlock()
			return
		}
	} else {
		c.seen, c.hasSeen = 0, false
	}
	c.clearLocked()
	snap, v := c.transitionLocked()
	c.mu.Unlock()

	c.log.Debug().Int64("user_id", userID).Bool("signed_in", ok).Msg("identity changed, roster cleared")
	c.notify(snap, v)
}

// Snapshot returns a copy of the cache.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		IsLoading: c.inFlight > 0,
		Error:     c.errMsg,
		Err:       c.err,
		FetchedAt: c.fetchedAt,
	}
	if c.entries != nil {
		s.Entries = make([]Entry, len(c.entries))
		copy(s.Entries, c.entries)
	}
	return s
}

// LastUpdatedLabel is the freshness readout, e.g. "Updated 3 minutes ago".
// It is empty when nothing has been fetched.
func (c *Controller) LastUpdatedLabel(now time.Time) string {
	c.mu.RLock()
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	if fetchedAt.IsZero() {
		return ""
	}
	if now.Sub(fetchedAt) < time.Minute {
		return "Updated just now"
	}
	return "Updated " + humanize.RelTime(fetchedAt, now, "ago", "from now")
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

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

// transitionLocked stamps the current state with the next version.
func (c *Controller) transitionLocked() (Snapshot, uint64) {
	c.version++
	return c.snapshotLocked(), c.version
}

// notify delivers snap unless a newer one has already gone out. Listeners
// must not call back into the controller synchronously.
func (c *Controller) notify(snap Snapshot, version uint64) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if version <= c.delivered {
		return
	}
	c.delivered = version

	c.listenersMu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
