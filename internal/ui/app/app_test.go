// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

// =============================================================================
// FAKES
// =============================================================================

var ada = api.User{ID: 1, Name: "Ada Lovelace", Email: "ada@mercy.org", StreamToken: "stream"}

type fakeBackend struct {
	mu       sync.Mutex
	logins   int
	loginErr error
}

func (b *fakeBackend) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logins++
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	return &api.AuthResponse{User: ada, Token: "tok"}, nil
}

func (b *fakeBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	return &api.AuthResponse{User: api.User{ID: 9, Name: req.Name, Email: req.Email}, Token: "tok"}, nil
}

func (b *fakeBackend) Logout(ctx context.Context, token string) error { return nil }

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	members []api.Member
}

func (f *fakeFetcher) Members(ctx context.Context, userID int64, token string) ([]api.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.members, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChat struct {
	mu       sync.Mutex
	created  [][]int64
	watched  []string
	sendErr  error
	nextID   int
	messages []transport.Message
}

func (c *fakeChat) CreateChannel(ctx context.Context, members []int64) (*transport.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, members)
	c.nextID++
	return &transport.Channel{
		ID:        "ch-new",
		Members:   append([]int64{ada.ID}, members...),
		CreatedBy: ada.ID,
		CreatedAt: time.Now(),
	}, nil
}

func (c *fakeChat) Watch(ctx context.Context, channelID string) (*transport.ChannelState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched = append(c.watched, channelID)
	return &transport.ChannelState{
		Channel:  transport.Channel{ID: channelID, Members: []int64{ada.ID, 2}},
		Messages: c.messages,
	}, nil
}

func (c *fakeChat) SendMessage(ctx context.Context, channelID, text string) (*transport.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.nextID++
	return &transport.Message{
		ID:        "m-" + text,
		ChannelID: channelID,
		UserID:    ada.ID,
		UserName:  ada.Name,
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	store   *storage.MemoryStore
	backend *fakeBackend
	fetcher *fakeFetcher
	chat    *fakeChat
	deps    Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := storage.NewMemoryStore()
	backend := &fakeBackend{}
	fetcher := &fakeFetcher{members: []api.Member{
		{ID: 2, Name: "Grace Hopper", Email: "grace@mercy.org"},
		{ID: 3, Name: "Barbara Liskov", Email: "barbara@mercy.org"},
	}}
	a := auth.NewController(backend, store, zerolog.Nop())
	h := &harness{
		store:   store,
		backend: backend,
		fetcher: fetcher,
		chat:    &fakeChat{},
	}
	h.deps = Deps{
		Theme:     theme.NewController(store, zerolog.Nop()),
		Auth:      a,
		Roster:    roster.NewController(fetcher, a, zerolog.Nop()),
		Chat:      h.chat,
		Directory: model.NewDirectory(),
		Log:       zerolog.Nop(),
	}
	return h
}

// exec runs cmd and returns the messages it produced within a short wait.
// Timers such as cursor blinks and the redraw ticker do not finish in time
// and are dropped.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, exec(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(75 * time.Millisecond):
		return nil
	}
}

// send delivers msg and everything its commands produce.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "update loop did not settle")
		next := queue[0]
		queue = queue[1:]
		switch next.(type) {
		case spinner.TickMsg, tickMsg, tea.QuitMsg:
			continue
		}
		res, cmd := m.Update(next)
		m = res.(Model)
		queue = append(queue, exec(cmd)...)
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: k})
}

func rune1(t *testing.T, m Model, r rune) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

// start runs Init and settles.
func (h *harness) start(t *testing.T) Model {
	t.Helper()
	m := New(context.Background(), h.deps)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	for _, msg := range exec(m.Init()) {
		m = send(t, m, msg)
	}
	return m
}

// signIn stores a session so start lands on the chat list.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	data, err := json.Marshal(ada)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, storage.KeyAuthToken, "tok"))
	require.NoError(t, h.store.Set(ctx, storage.KeyUserData, string(data)))
	h.deps.Directory.Reset(ada.ID)
	h.deps.Directory.SetPeople(h.fetcher.members)
}

func connected(t *testing.T, m Model) Model {
	return send(t, m, ConnectionChangedMsg{Status: transport.Status{IsConnected: true}})
}

func directChat(d *model.Directory, id string, other int64) {
	d.AddChannel(transport.Channel{ID: id, Members: []int64{ada.ID, other}, CreatedAt: time.Now()})
}

// =============================================================================
// AUTH SCREENS
// =============================================================================

func TestStartsOnLoginWithoutSession(t *testing.T) {
	h := newHarness(t)
	m := New(context.Background(), h.deps)
	assert.Equal(t, ScreenLoading, m.Screen())

	m = h.start(t)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), "Welcome back")
}

func TestRestoresStoredSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	m := h.start(t)
	assert.Equal(t, ScreenChats, m.Screen())
	assert.Equal(t, 1, h.fetcher.count(), "signing in loads the roster")
	assert.Contains(t, m.View(), "Ada Lovelace")
}

func TestLogin_ValidatesBeforeSubmitting(t *testing.T) {
	h := newHarness(t)
	m := h.start(t)

	m = typeText(t, m, "not-an-email")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "pw")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Zero(t, h.backend.logins)
	view := m.View()
	assert.Contains(t, view, "Please enter a valid email address")
	assert.Contains(t, view, "Password must be at least 6 characters")
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	m := h.start(t)

	m = typeText(t, m, "ada@mercy.org")
	m = press(t, m, tea.KeyEnter) // moves to the password field
	m = typeText(t, m, "password123")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, 1, h.backend.logins)
	assert.Equal(t, ScreenChats, m.Screen())
	assert.True(t, h.deps.Auth.State().IsAuthenticated)
	assert.Equal(t, 1, h.fetcher.count())
}

func TestLogin_ServerRejection(t *testing.T) {
	h := newHarness(t)
	h.backend.loginErr = &api.ServerRejected{Status: 401, Message: "Invalid credentials"}
	m := h.start(t)

	m = typeText(t, m, "ada@mercy.org")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "password123")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), "Invalid credentials")
	assert.Empty(t, m.login.value(fieldPassword), "password is cleared after a failure")
	assert.Equal(t, "ada@mercy.org", m.login.value(fieldEmail))
}

func TestRegister_SwitchAndValidate(t *testing.T) {
	h := newHarness(t)
	m := h.start(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, ScreenRegister, m.Screen())
	assert.Contains(t, m.View(), "Create account")

	m = typeText(t, m, "Jane Doe")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "jane@mercy.org")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "MERCY")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "Password1")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "Password2")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, ScreenRegister, m.Screen())
	assert.Contains(t, m.View(), "Passwords do not match")

	// Fix the confirmation and submit again.
	for range "Password2" {
		m = press(t, m, tea.KeyBackspace)
	}
	m = typeText(t, m, "Password1")
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, ScreenChats, m.Screen())
	assert.Equal(t, "Jane Doe", h.deps.Auth.State().User.Name)

	// Esc on the register form goes back to login.
	h2 := newHarness(t)
	m2 := send(t, h2.start(t), tea.KeyMsg{Type: tea.KeyCtrlN})
	m2 = press(t, m2, tea.KeyEsc)
	assert.Equal(t, ScreenLogin, m2.Screen())
}

// =============================================================================
// CHATS SCREEN
// =============================================================================

func TestChats_SearchAndTabs(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)

	d := h.deps.Directory
	directChat(d, "c-grace", 2)
	directChat(d, "c-barbara", 3)
	d.AddChannel(transport.Channel{ID: "c-team", Name: "Night shift", Members: []int64{ada.ID, 2, 3}})
	m = send(t, m, DirectoryChangedMsg{})
	assert.Equal(t, 3, m.list.Len())

	m = rune1(t, m, '/')
	m = typeText(t, m, "grace")
	require.Equal(t, 1, m.list.Len())
	c, _ := m.list.Selected()
	assert.Equal(t, "c-grace", c.ID)

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, 3, m.list.Len())

	// All, Personal, Work, Groups.
	m = press(t, m, tea.KeyTab)
	assert.Equal(t, model.CategoryPersonal, m.category)
	assert.Equal(t, 2, m.list.Len())
	m = press(t, m, tea.KeyTab)
	m = press(t, m, tea.KeyTab)
	assert.Equal(t, model.CategoryGroups, m.category)
	assert.Equal(t, 1, m.list.Len())
	assert.Contains(t, m.View(), "Night shift")
}

func TestChats_PinAndWork(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)

	d := h.deps.Directory
	directChat(d, "c-grace", 2)
	m = send(t, m, DirectoryChangedMsg{})

	m = rune1(t, m, 'p')
	c, ok := d.Chat("c-grace")
	require.True(t, ok)
	assert.True(t, c.IsPinned)
	assert.Contains(t, m.notice, "Pinned")

	m = rune1(t, m, 'w')
	c, _ = d.Chat("c-grace")
	assert.Equal(t, model.TypeWork, c.Type)
	assert.Contains(t, m.notice, "Work")
}

func TestChats_QuitKey(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// =============================================================================
// MEMBERS SCREEN
// =============================================================================

func TestMembers_OpenUsesCacheAndRefreshForces(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)
	require.Equal(t, 1, h.fetcher.count())

	m = rune1(t, m, 'n')
	require.Equal(t, ScreenMembers, m.Screen())
	assert.Equal(t, 1, h.fetcher.count(), "a fresh cache is not refetched")
	m = send(t, m, RosterChangedMsg{Snapshot: h.deps.Roster.Snapshot()})

	view := m.View()
	assert.Contains(t, view, "Grace Hopper")
	assert.Contains(t, view, "Updated just now")

	m = rune1(t, m, 'r')
	assert.Equal(t, 2, h.fetcher.count())

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, ScreenChats, m.Screen())
}

func TestMembers_StartsDirectChat(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := connected(t, h.start(t))

	m = rune1(t, m, 'n')
	m = send(t, m, RosterChangedMsg{Snapshot: h.deps.Roster.Snapshot()})
	// The fake roster lists Grace first.
	m = press(t, m, tea.KeyEnter)

	require.Len(t, h.chat.created, 1)
	assert.Equal(t, []int64{2}, h.chat.created[0])
	assert.Equal(t, ScreenConversation, m.Screen())
	assert.Equal(t, "ch-new", m.active)
	assert.Equal(t, []string{"ch-new"}, h.chat.watched)
}

func TestMembers_StartsGroupChat(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := connected(t, h.start(t))

	m = rune1(t, m, 'n')
	m = send(t, m, RosterChangedMsg{Snapshot: h.deps.Roster.Snapshot()})
	m = rune1(t, m, ' ')
	m = press(t, m, tea.KeyDown)
	m = rune1(t, m, ' ')
	assert.Contains(t, m.View(), "2 members selected")
	m = press(t, m, tea.KeyEnter)

	require.Len(t, h.chat.created, 1)
	assert.Equal(t, []int64{2, 3}, h.chat.created[0])
	assert.Equal(t, ScreenConversation, m.Screen())
}

func TestMembers_ReusesExistingDirectChat(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := connected(t, h.start(t))
	directChat(h.deps.Directory, "c-grace", 2)

	m = rune1(t, m, 'n')
	m = send(t, m, RosterChangedMsg{Snapshot: h.deps.Roster.Snapshot()})
	m = press(t, m, tea.KeyEnter)

	assert.Empty(t, h.chat.created)
	assert.Equal(t, ScreenConversation, m.Screen())
	assert.Equal(t, "c-grace", m.active)
}

func TestMembers_OfflineCannotCreate(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)

	m = rune1(t, m, 'n')
	m = send(t, m, RosterChangedMsg{Snapshot: h.deps.Roster.Snapshot()})
	m = press(t, m, tea.KeyEnter)

	assert.Empty(t, h.chat.created)
	assert.Equal(t, ScreenMembers, m.Screen())
	assert.True(t, m.noticeErr)
}

// =============================================================================
// CONVERSATION SCREEN
// =============================================================================

func openGrace(t *testing.T, h *harness) Model {
	t.Helper()
	h.signIn(t)
	m := connected(t, h.start(t))
	directChat(h.deps.Directory, "c-grace", 2)
	m = send(t, m, DirectoryChangedMsg{})
	m = press(t, m, tea.KeyEnter)
	require.Equal(t, ScreenConversation, m.Screen())
	return m
}

func TestConversation_LoadsHistoryOnce(t *testing.T) {
	h := newHarness(t)
	h.chat.messages = []transport.Message{
		{ID: "old", ChannelID: "c-grace", UserID: 2, UserName: "Grace Hopper", Text: "morning", CreatedAt: time.Now().Add(-time.Minute)},
	}
	m := openGrace(t, h)

	assert.Equal(t, []string{"c-grace"}, h.chat.watched)
	assert.True(t, h.deps.Directory.HistoryLoaded("c-grace"))
	assert.Contains(t, m.View(), "morning")
	assert.Equal(t, "c-grace", h.deps.Directory.Active())

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, ScreenChats, m.Screen())
	assert.Empty(t, h.deps.Directory.Active())

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, ScreenConversation, m.Screen())
	assert.Len(t, h.chat.watched, 1)
}

func TestConversation_Send(t *testing.T) {
	h := newHarness(t)
	m := openGrace(t, h)

	m = typeText(t, m, "hello grace")
	m = press(t, m, tea.KeyEnter)

	msgs := h.deps.Directory.Messages("c-grace")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello grace", msgs[0].Text)
	assert.True(t, msgs[0].IsOwn)
	assert.Empty(t, m.composer.Value())
	assert.Contains(t, m.View(), "hello grace")

	// Blank input sends nothing.
	m = typeText(t, m, "   ")
	m = press(t, m, tea.KeyEnter)
	assert.Len(t, h.deps.Directory.Messages("c-grace"), 1)
}

func TestConversation_SendFailureKeepsText(t *testing.T) {
	h := newHarness(t)
	h.chat.sendErr = &transport.ServerError{Code: transport.CodeForbidden, Message: "not a member of this channel"}
	m := openGrace(t, h)

	m = typeText(t, m, "hi")
	m = press(t, m, tea.KeyEnter)

	assert.Empty(t, h.deps.Directory.Messages("c-grace"))
	assert.Equal(t, "hi", m.composer.Value())
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.View(), "not a member of this channel")
}

func TestConversation_HeaderShowsPresence(t *testing.T) {
	h := newHarness(t)
	m := openGrace(t, h)
	h.deps.Directory.SetOnline(2, true, time.Now())
	m = send(t, m, DirectoryChangedMsg{})
	assert.Equal(t, "online", m.header.Subtitle)
}

// =============================================================================
// SETTINGS AND TRANSPORT
// =============================================================================

func TestSettings_ThemeAndLogout(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := h.start(t)

	m = rune1(t, m, 's')
	require.Equal(t, ScreenSettings, m.Screen())
	assert.Contains(t, m.View(), "Choose Theme")

	// System is selected; up moves to Dark.
	m = press(t, m, tea.KeyUp)
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, theme.ModeDark, h.deps.Theme.Mode())
	assert.True(t, m.theme.IsDark)

	h.deps.Theme.Wait()
	stored, ok, err := h.store.Get(context.Background(), storage.KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, string(theme.ModeDark), stored)

	m = rune1(t, m, 'L')
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.False(t, h.deps.Auth.State().IsAuthenticated)
}

func TestTransportDisconnectShowsNotice(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	m := connected(t, h.start(t))

	m = send(t, m, TransportEventMsg{Event: transport.Event{Kind: transport.EventDisconnected, Err: errors.New("eof")}})
	assert.False(t, m.conn.IsConnected)
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.View(), "Connection lost")
	assert.Contains(t, m.View(), "reconnect")
}

func TestAttach_ForwardsNotifications(t *testing.T) {
	h := newHarness(t)
	events := make(chan transport.Event, 4)
	h.deps.Events = events

	var mu sync.Mutex
	var got []tea.Msg
	stop := Attach(h.deps, func(msg tea.Msg) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})
	defer stop()

	has := func(match func(tea.Msg) bool) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, m := range got {
				if match(m) {
					return true
				}
			}
			return false
		}
	}

	require.NoError(t, h.deps.Auth.Login(context.Background(), "ada@mercy.org", "password123"))
	require.Eventually(t, has(func(m tea.Msg) bool {
		a, ok := m.(AuthChangedMsg)
		return ok && a.State.IsAuthenticated
	}), time.Second, 5*time.Millisecond)
	assert.Equal(t, ada.ID, h.deps.Directory.Self())

	require.NoError(t, h.deps.Roster.Refresh(context.Background(), false))
	p, ok := h.deps.Directory.Person(2)
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", p.Name)

	events <- transport.Event{Kind: transport.EventMessage, ChannelID: "c1", Message: &transport.Message{
		ID: "m1", ChannelID: "c1", UserID: 2, UserName: "Grace Hopper", Text: "hi", CreatedAt: time.Now(),
	}}
	require.Eventually(t, func() bool { return len(h.deps.Directory.Messages("c1")) == 1 }, time.Second, 5*time.Millisecond)

	events <- transport.Event{Kind: transport.EventError, Err: errors.New("bad frame")}
	require.Eventually(t, has(func(m tea.Msg) bool {
		ev, ok := m.(TransportEventMsg)
		return ok && ev.Event.Kind == transport.EventError
	}), time.Second, 5*time.Millisecond)

	h.deps.Theme.SetTheme(context.Background(), theme.ModeDark)
	require.Eventually(t, has(func(m tea.Msg) bool {
		_, ok := m.(ThemeChangedMsg)
		return ok
	}), time.Second, 5*time.Millisecond)

	stop()
	stop()
}
