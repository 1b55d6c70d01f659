// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type result struct {
	members []api.Member
	err     error
}

// fakeFetcher answers from a queue of results. When gate is non-nil each call
// blocks until a value is sent on it.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	users   []int64
	tokens  []string
	results []result
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) Members(ctx context.Context, userID int64, token string) ([]api.Member, error) {
	f.mu.Lock()
	f.calls++
	f.users = append(f.users, userID)
	f.tokens = append(f.tokens, token)
	var r result
	if len(f.results) > 0 {
		r = f.results[0]
		f.results = f.results[1:]
	}
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return r.members, r.err
}

func (f *fakeFetcher) push(r ...result) {
	f.mu.Lock()
	f.results = append(f.results, r...)
	f.mu.Unlock()
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIdentity struct {
	mu    sync.Mutex
	id    int64
	token string
	ok    bool
}

func (i *fakeIdentity) Credentials() (int64, string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id, i.token, i.ok
}

func (i *fakeIdentity) set(id int64, ok bool) {
	i.mu.Lock()
	i.id, i.token, i.ok = id, fmt.Sprintf("token-%d", id), ok
	i.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func members(names ...string) []api.Member {
	out := make([]api.Member, len(names))
	for i, n := range names {
		out[i] = api.Member{ID: int64(i + 1), Name: n, Email: n + "@h.org", HospitalID: 9, StreamToken: "st-" + n}
	}
	return out
}

type fixture struct {
	ctrl     *Controller
	fetcher  *fakeFetcher
	identity *fakeIdentity
	clock    *fakeClock
}

func newFixture(userID int64) *fixture {
	f := &fixture{
		fetcher:  &fakeFetcher{},
		identity: &fakeIdentity{},
		clock:    &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.identity.set(userID, true)
	f.ctrl = NewController(f.fetcher, f.identity, zerolog.Nop(), WithClock(f.clock.Now))
	return f
}

// =============================================================================
// CACHE HIT / TTL / FORCE
// =============================================================================

func TestFetch_CacheHitSuppressesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada", "Grace")}, result{members: members("Other")})

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	first := f.ctrl.Snapshot()

	f.clock.Advance(4 * time.Minute)
	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))

	assert.Equal(t, 1, f.fetcher.callCount())
	assert.Equal(t, first.Entries, f.ctrl.Snapshot().Entries)
	assert.Equal(t, "token-42", f.fetcher.tokens[0])
}

func TestFetch_TTLExpiryRefetches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")}, result{members: members("Ada", "Grace")})

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	f.clock.Advance(DefaultTTL)
	assert.False(t, f.ctrl.IsCacheValid(42), "age == TTL is expired")

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	assert.Equal(t, 2, f.fetcher.callCount())
	assert.Len(t, f.ctrl.Snapshot().Entries, 2)
}

func TestFetch_ForcedAlwaysRefetches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")}, result{members: members("Grace")})

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	require.NoError(t, f.ctrl.Fetch(ctx, 42, true))

	assert.Equal(t, 2, f.fetcher.callCount())
	assert.Equal(t, "Grace", f.ctrl.Snapshot().Entries[0].Name)
}

func TestFetch_EmptyRosterIsNotACacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: []api.Member{}}, result{members: members("Ada")})

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	assert.True(t, f.ctrl.IsCacheValid(42))
	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	assert.Equal(t, 2, f.fetcher.callCount())
}

func TestFetch_OtherUserIsNotACacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")})
	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))

	assert.True(t, f.ctrl.IsCacheValid(42))
	assert.False(t, f.ctrl.IsCacheValid(7))
}

func TestFetch_NoIdentity(t *testing.T) {
	f := newFixture(42)
	f.identity.set(0, false)

	err := f.ctrl.Fetch(context.Background(), 42, true)
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, 0, f.fetcher.callCount())
}

// =============================================================================
// FAILURES
// =============================================================================

func TestFetch_SoftFailurePreservesStaleData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(
		result{members: members("Ada", "Grace", "Linus")},
		result{err: &api.ServerRejected{Status: 200, Message: "Hospital temporarily unavailable"}},
	)

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	before := f.ctrl.Snapshot()

	f.clock.Advance(time.Minute)
	err := f.ctrl.Fetch(ctx, 42, true)
	require.ErrorIs(t, err, api.ErrRejected)

	after := f.ctrl.Snapshot()
	assert.Len(t, after.Entries, 3)
	assert.Equal(t, before.Entries, after.Entries)
	assert.Equal(t, before.FetchedAt, after.FetchedAt)
	assert.Equal(t, "Hospital temporarily unavailable", after.Error)
	assert.ErrorIs(t, after.Err, api.ErrRejected)
}

func TestFetch_LoadingAlwaysResolves(t *testing.T) {
	outcomes := map[string]result{
		"success":   {members: members("Ada")},
		"rejected":  {err: &api.ServerRejected{Status: 403, Message: "Forbidden"}},
		"network":   {err: &api.NetworkError{Op: "GET /users/42", Err: errors.New("connection refused")}},
		"malformed": {err: &api.MalformedResponse{Status: 200, Err: errors.New("bad json")}},
		"timeout":   {err: &api.NetworkError{Op: "GET /users/42", Err: context.DeadlineExceeded}},
	}

	for name, r := range outcomes {
		t.Run(name, func(t *testing.T) {
			f := newFixture(42)
			f.fetcher.push(r)

			var sawLoading bool
			f.ctrl.Subscribe(func(s Snapshot) {
				if s.IsLoading {
					sawLoading = true
				}
			})

			f.ctrl.Fetch(context.Background(), 42, false)
			snap := f.ctrl.Snapshot()
			assert.True(t, sawLoading)
			assert.False(t, snap.IsLoading)
			if r.err != nil {
				assert.NotEmpty(t, snap.Error)
			} else {
				assert.Empty(t, snap.Error)
			}
		})
	}
}

func TestFetch_ErrorMessages(t *testing.T) {
	assert.Equal(t, "Forbidden", describe(&api.ServerRejected{Message: "Forbidden"}))
	assert.Contains(t, describe(&api.NetworkError{Err: errors.New("x")}), "Unable to reach the server")
	assert.Contains(t, describe(&api.MalformedResponse{Err: errors.New("x")}), "unexpected response")
	assert.Contains(t, describe(&api.NetworkError{Err: context.DeadlineExceeded}), "timed out")
	assert.Equal(t, "Request cancelled.", describe(&api.NetworkError{Err: context.Canceled}))
	assert.NotContains(t, describe(context.Canceled), "timed out")
}

func TestFetch_SuccessClearsPreviousError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{err: &api.ServerRejected{Message: "nope"}}, result{members: members("Ada")})

	f.ctrl.Fetch(ctx, 42, false)
	assert.Equal(t, "nope", f.ctrl.Snapshot().Error)

	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))
	assert.Empty(t, f.ctrl.Snapshot().Error)
	assert.Nil(t, f.ctrl.Snapshot().Err)
}

// =============================================================================
// IDENTITY CHANGES
// =============================================================================

func TestSetIdentity_UserSwitchClearsAtomically(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada", "Grace")})
	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))

	var observed []Snapshot
	f.ctrl.Subscribe(func(s Snapshot) { observed = append(observed, s) })

	f.identity.set(7, true)
	f.ctrl.SetIdentity(7, true)

	require.Len(t, observed, 1, "one notification for the whole clear")
	for _, s := range append(observed, f.ctrl.Snapshot()) {
		assert.Empty(t, s.Entries)
		assert.True(t, s.FetchedAt.IsZero())
		assert.Empty(t, s.Error)
	}
	assert.False(t, f.ctrl.IsCacheValid(42))
}

func TestSetIdentity_UserSwitchClearsErrorWithoutEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{err: errors.New("boom")})
	require.Error(t, f.ctrl.Fetch(ctx, 42, false))
	require.NotEmpty(t, f.ctrl.Snapshot().Error)

	f.identity.set(7, true)
	f.ctrl.SetIdentity(7, true)

	snap := f.ctrl.Snapshot()
	assert.Empty(t, snap.Error, "user 42's failure is not shown to user 7")
	assert.Nil(t, snap.Err)
}

func TestSetIdentity_SwitchAfterSeenUserClears(t *testing.T) {
	f := newFixture(42)
	f.ctrl.SetIdentity(42, true)

	var cleared int
	f.ctrl.Subscribe(func(Snapshot) { cleared++ })

	f.identity.set(7, true)
	f.ctrl.SetIdentity(7, true)
	assert.Equal(t, 1, cleared)

	f.ctrl.SetIdentity(7, true)
	assert.Equal(t, 1, cleared, "repeating the same identity is a no-op")
}

func TestSetIdentity_SameUserKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")})
	require.NoError(t, f.ctrl.Fetch(ctx, 42, false))

	f.ctrl.SetIdentity(42, true)
	assert.Len(t, f.ctrl.Snapshot().Entries, 1)
}

func TestSetIdentity_LogoutClears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(42)
	f.fetcher.push(result{err: &api.ServerRejected{Message: "nope"}})
	f.ctrl.Fetch(ctx, 42, false)

	f.ctrl.SetIdentity(0, false)
	snap := f.ctrl.Snapshot()
	assert.Empty(t, snap.Error, "error is cleared with the rest")
}

func TestFetch_StaleResponseAfterUserSwitchDiscarded(t *testing.T) {
	f := newFixture(42)
	f.fetcher.gate = make(chan struct{})
	f.fetcher.started = make(chan struct{}, 1)
	f.fetcher.push(result{members: members("Ada")})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Fetch(context.Background(), 42, false) }()
	<-f.fetcher.started

	f.identity.set(7, true)
	f.ctrl.SetIdentity(7, true)
	close(f.fetcher.gate)
	require.NoError(t, <-done)

	snap := f.ctrl.Snapshot()
	assert.Empty(t, snap.Entries)
	assert.True(t, snap.FetchedAt.IsZero())
	assert.False(t, snap.IsLoading)
	assert.False(t, f.ctrl.IsCacheValid(42))
}

func TestFetch_ResponseAfterClearDiscarded(t *testing.T) {
	f := newFixture(42)
	f.fetcher.gate = make(chan struct{})
	f.fetcher.started = make(chan struct{}, 1)
	f.fetcher.push(result{err: &api.ServerRejected{Message: "late failure"}})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Fetch(context.Background(), 42, true) }()
	<-f.fetcher.started

	f.ctrl.ClearCache()
	close(f.fetcher.gate)
	<-done

	assert.Empty(t, f.ctrl.Snapshot().Error)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestFetch_UnforcedDroppedWhileLoading(t *testing.T) {
	f := newFixture(42)
	f.fetcher.gate = make(chan struct{})
	f.fetcher.started = make(chan struct{}, 2)
	f.fetcher.push(result{members: members("Ada")})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Fetch(context.Background(), 42, false) }()
	<-f.fetcher.started
	assert.True(t, f.ctrl.Snapshot().IsLoading)

	require.NoError(t, f.ctrl.Fetch(context.Background(), 42, false))
	assert.Equal(t, 1, f.fetcher.callCount(), "second unforced call is dropped")

	close(f.fetcher.gate)
	require.NoError(t, <-done)
	assert.False(t, f.ctrl.Snapshot().IsLoading)
}

func TestFetch_ForcedOverlapKeepsLoadingUntilLast(t *testing.T) {
	f := newFixture(42)
	f.fetcher.gate = make(chan struct{})
	f.fetcher.started = make(chan struct{}, 2)
	f.fetcher.push(result{members: members("First")}, result{members: members("Second")})

	done := make(chan error, 2)
	go func() { done <- f.ctrl.Fetch(context.Background(), 42, true) }()
	<-f.fetcher.started
	go func() { done <- f.ctrl.Fetch(context.Background(), 42, true) }()
	<-f.fetcher.started
	assert.Equal(t, 2, f.fetcher.callCount())

	f.fetcher.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.True(t, f.ctrl.Snapshot().IsLoading, "one fetch still running")

	f.fetcher.gate <- struct{}{}
	require.NoError(t, <-done)
	snap := f.ctrl.Snapshot()
	assert.False(t, snap.IsLoading)
	require.Len(t, snap.Entries, 1)
}

func TestFetch_ConcurrentCallers(t *testing.T) {
	f := newFixture(42)
	for i := 0; i < 20; i++ {
		f.fetcher.push(result{members: members("Ada")})
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.ctrl.Fetch(context.Background(), 42, i%2 == 0)
			f.ctrl.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.False(t, f.ctrl.Snapshot().IsLoading)
	assert.True(t, f.ctrl.IsCacheValid(42))
}

func TestNotify_ListenersEndOnLatestState(t *testing.T) {
	f := newFixture(42)
	for i := 0; i < 20; i++ {
		f.fetcher.push(result{members: members(fmt.Sprintf("Gen%d", i))})
	}

	var (
		mu   sync.Mutex
		last Snapshot
	)
	f.ctrl.Subscribe(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.Fetch(context.Background(), 42, true)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, f.ctrl.Snapshot(), last)
	assert.False(t, last.IsLoading)
}

func TestNotify_DropsOlderSnapshots(t *testing.T) {
	f := newFixture(42)
	var got []Snapshot
	f.ctrl.Subscribe(func(s Snapshot) { got = append(got, s) })

	newer := Snapshot{Entries: members("New")}
	older := Snapshot{IsLoading: true}
	f.ctrl.notify(newer, 2)
	f.ctrl.notify(older, 1)

	require.Len(t, got, 1)
	assert.Equal(t, newer, got[0])
}

// =============================================================================
// MISC
// =============================================================================

func TestRefresh(t *testing.T) {
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")}, result{members: members("Ada")})

	require.NoError(t, f.ctrl.Refresh(context.Background(), true))
	assert.Equal(t, []int64{42}, f.fetcher.users)

	f.identity.set(0, false)
	require.NoError(t, f.ctrl.Refresh(context.Background(), true))
	assert.Equal(t, 1, f.fetcher.callCount(), "no identity means no request")
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := newFixture(42)
	f.fetcher.push(result{members: members("Ada")})
	require.NoError(t, f.ctrl.Fetch(context.Background(), 42, false))

	snap := f.ctrl.Snapshot()
	snap.Entries[0].Name = "mutated"
	assert.Equal(t, "Ada", f.ctrl.Snapshot().Entries[0].Name)
}

func TestLastUpdatedLabel(t *testing.T) {
	f := newFixture(42)
	assert.Empty(t, f.ctrl.LastUpdatedLabel(f.clock.Now()))

	f.fetcher.push(result{members: members("Ada")})
	require.NoError(t, f.ctrl.Fetch(context.Background(), 42, false))
	fetched := f.clock.Now()

	assert.Equal(t, "Updated just now", f.ctrl.LastUpdatedLabel(fetched.Add(20*time.Second)))
	assert.Equal(t, "Updated 3 minutes ago", f.ctrl.LastUpdatedLabel(fetched.Add(3*time.Minute)))
}

func TestWithTTL(t *testing.T) {
	c := NewController(&fakeFetcher{}, &fakeIdentity{}, zerolog.Nop(), WithTTL(time.Minute))
	assert.Equal(t, time.Minute, c.TTL())
}
