// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/components"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
)

// DefaultRequestTimeout bounds every network call the UI starts.
const DefaultRequestTimeout = 15 * time.Second

// refreshInterval is how often relative times are redrawn.
const refreshInterval = 30 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ChatService is the request side of the chat transport.
type ChatService interface {
	CreateChannel(ctx context.Context, members []int64) (*transport.Channel, error)
	Watch(ctx context.Context, channelID string) (*transport.ChannelState, error)
	SendMessage(ctx context.Context, channelID, text string) (*transport.Message, error)
}

// Deps are the collaborators the UI renders and drives.
type Deps struct {
	Theme     *theme.Controller
	Auth      *auth.Controller
	Roster    *roster.Controller
	Session   *transport.Session
	Chat      ChatService
	Events    <-chan transport.Event
	Directory *model.Directory
	Log       zerolog.Logger

	// Now defaults to time.Now.
	Now            func() time.Time
	RequestTimeout time.Duration
	ShowTimestamps bool
	// Compact hides the shortcut bar.
	Compact bool
}

// =============================================================================
// SCREENS
// =============================================================================

// Screen identifies what the model is showing.
type Screen int

const (
	ScreenLoading Screen = iota // Restoring a stored session
	ScreenLogin
	ScreenRegister
	ScreenChats
	ScreenMembers
	ScreenConversation
	ScreenSettings
)

// String returns the screen name used in logs.
func (s Screen) String() string {
	switch s {
	case ScreenLoading:
		return "loading"
	case ScreenLogin:
		return "login"
	case ScreenRegister:
		return "register"
	case ScreenChats:
		return "chats"
	case ScreenMembers:
		return "members"
	case ScreenConversation:
		return "conversation"
	case ScreenSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// signedIn reports whether s requires a session.
func (s Screen) signedIn() bool {
	return s >= ScreenChats
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	ctx  context.Context
	deps Deps
	keys KeyMap
	log  zerolog.Logger

	theme  *styles.Theme
	header *components.Header
	width  int
	height int
	screen Screen

	// Latest controller snapshots.
	auth   auth.State
	conn   transport.Status
	roster roster.Snapshot

	// Login and register.
	login    form
	register form

	// Chats.
	search    textinput.Model
	searching bool
	category  model.Category
	list      *components.ChatList

	// Members.
	picker       *components.MemberPicker
	memberSearch textinput.Model
	pickerSearch bool
	creating     bool

	// Conversation.
	active   string
	viewport viewport.Model
	composer textinput.Model
	markdown *components.Markdown
	sending  bool

	// Settings.
	themePicker *components.ThemePicker

	spinner components.Spinner
	// notice is a one-line message under the header; noticeErr styles it as
	// an error.
	notice    string
	noticeErr bool
}

// New creates the root model. Theme and Auth are required.
func New(ctx context.Context, d Deps) Model {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = DefaultRequestTimeout
	}
	if d.Directory == nil {
		d.Directory = model.NewDirectory()
	}

	snap := d.Theme.Snapshot()
	t := styles.New(snap)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search chats"
	search.CharLimit = 100

	memberSearch := textinput.New()
	memberSearch.Prompt = "/ "
	memberSearch.Placeholder = "Search members"
	memberSearch.CharLimit = 100

	composer := textinput.New()
	composer.Prompt = "> "
	composer.Placeholder = "Type a message"
	composer.CharLimit = 4000

	m := Model{
		ctx:          ctx,
		deps:         d,
		keys:         DefaultKeyMap(),
		log:          d.Log.With().Str("component", "ui").Logger(),
		theme:        t,
		header:       components.NewHeader(t),
		width:        80,
		height:       24,
		screen:       ScreenLoading,
		auth:         d.Auth.State(),
		login:        newLoginForm(),
		register:     newRegisterForm(),
		search:       search,
		category:     model.CategoryAll,
		list:         components.NewChatList(),
		picker:       components.NewMemberPicker(),
		memberSearch: memberSearch,
		viewport:     viewport.New(80, 16),
		composer:     composer,
		markdown:     components.NewMarkdown(snap.IsDark, 60),
		themePicker:  components.NewThemePicker(snap.Mode),
		spinner:      components.NewSpinner("Restoring session"),
	}
	m.spinner.Start()
	if d.Session != nil {
		m.conn = d.Session.Status()
	}
	if d.Roster != nil {
		m.roster = d.Roster.Snapshot()
	}
	m.resize(m.width, m.height)
	return m
}

// Screen returns the screen being shown.
func (m Model) Screen() Screen { return m.screen }

// Init restores the stored session and starts the redraw ticker.
func (m Model) Init() tea.Cmd {
	a := m.deps.Auth
	ctx := m.ctx
	restore := func() tea.Msg {
		a.LoadStored(ctx)
		return AuthChangedMsg{State: a.State()}
	}
	return tea.Batch(restore, m.spinner.Tick(), tick(), textinput.Blink)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case ThemeChangedMsg:
		m.applyTheme(msg.Snapshot)
		return m, nil

	case AuthChangedMsg:
		return m.handleAuthChanged(msg.State)

	case RosterChangedMsg:
		m.roster = msg.Snapshot
		m.picker.SetMembers(msg.Snapshot.Entries)
		return m, nil

	case ConnectionChangedMsg:
		m.conn = msg.Status
		m.syncHeader()
		return m, nil

	case DirectoryChangedMsg:
		m.refreshChats()
		if m.screen == ScreenConversation {
			m.refreshConversation()
		}
		return m, nil

	case TransportEventMsg:
		return m.handleTransportEvent(msg.Event)

	case authResultMsg:
		return m.handleAuthResult(msg)

	case rosterFetchedMsg:
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Msg("roster fetch failed")
		}
		return m, nil

	case channelCreatedMsg:
		return m.handleChannelCreated(msg)

	case historyMsg:
		return m.handleHistory(msg)

	case sentMsg:
		return m.handleSent(msg)

	case reconnectedMsg:
		if m.deps.Session != nil {
			m.conn = m.deps.Session.Status()
		}
		m.syncHeader()
		if m.conn.Err != nil {
			m.setError("Could not connect: " + m.conn.Err.Error())
		} else if m.conn.IsConnected {
			m.setNotice("Connected")
		}
		return m, nil

	case tickMsg:
		m.refreshChats()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// updateFocused passes msg, usually a cursor blink, to the focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenLogin:
		m.login, cmd = m.login.update(msg)
	case ScreenRegister:
		m.register, cmd = m.register.update(msg)
	case ScreenChats:
		if m.searching {
			m.search, cmd = m.search.Update(msg)
		}
	case ScreenMembers:
		if m.pickerSearch {
			m.memberSearch, cmd = m.memberSearch.Update(msg)
		}
	case ScreenConversation:
		m.composer, cmd = m.composer.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case ScreenLoading:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	case ScreenLogin:
		return m.updateLogin(msg)
	case ScreenRegister:
		return m.updateRegister(msg)
	case ScreenChats:
		return m.updateChats(msg)
	case ScreenMembers:
		return m.updateMembers(msg)
	case ScreenConversation:
		return m.updateConversation(msg)
	case ScreenSettings:
		return m.updateSettings(msg)
	}
	return m, nil
}

// handleAuthChanged moves between the signed-out and signed-in screens.
func (m Model) handleAuthChanged(s auth.State) (tea.Model, tea.Cmd) {
	wasIn := m.auth.IsAuthenticated
	m.auth = s

	switch {
	case s.IsLoading && !s.IsAuthenticated:
		return m, nil

	case s.IsAuthenticated && (!wasIn || !m.screen.signedIn()):
		m.spinner.Stop()
		m.login.reset()
		m.register.reset()
		m.showChats()
		m.log.Info().Int64("user_id", s.UserID()).Msg("signed in")
		return m, tea.Batch(m.fetchRoster(false), textinput.Blink)

	case !s.IsAuthenticated && (m.screen.signedIn() || m.screen == ScreenLoading):
		m.spinner.Stop()
		m.active = ""
		m.searching = false
		m.search.Reset()
		m.picker.ClearSelection()
		m.screen = ScreenLogin
		cmd := m.login.focusFirst()
		return m, cmd
	}

	m.syncHeader()
	return m, nil
}

func (m Model) handleTransportEvent(ev transport.Event) (tea.Model, tea.Cmd) {
	if m.deps.Session != nil {
		m.conn = m.deps.Session.Status()
	}
	switch ev.Kind {
	case transport.EventDisconnected:
		m.conn.IsConnected = false
		if ev.Err != nil {
			m.log.Warn().Err(ev.Err).Msg("chat connection lost")
			m.setError("Connection lost. Press c on the chat list to reconnect.")
		}
	case transport.EventConnected:
		m.conn.IsConnected = true
	case transport.EventError:
		if ev.Err != nil {
			m.setError(ev.Err.Error())
		}
	}
	m.syncHeader()
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// call runs fn with the request timeout.
func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	parent, timeout := m.ctx, m.deps.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m Model) fetchRoster(force bool) tea.Cmd {
	r := m.deps.Roster
	if r == nil {
		return nil
	}
	return m.call(func(ctx context.Context) tea.Msg {
		return rosterFetchedMsg{err: r.Refresh(ctx, force)}
	})
}

// =============================================================================
// SHARED STATE HELPERS
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)

	// Header, tabs, search, notice and shortcuts take about nine lines.
	m.list.SetSize(width-2, height-9)
	m.picker.SetSize(width-4, height-10)
	m.viewport.Width = width
	m.viewport.Height = maxInt(height-7, 3)

	m.search.Width = width - 6
	m.memberSearch.Width = width - 6
	m.composer.Width = width - 6
	m.login.setWidth(width)
	m.register.setWidth(width)

	if !m.markdown.Matches(m.theme.IsDark, bubbleWidth(width)) {
		m.markdown = components.NewMarkdown(m.theme.IsDark, bubbleWidth(width))
	}
	if m.screen == ScreenConversation {
		m.refreshConversation()
	}
}

func (m *Model) applyTheme(snap theme.Snapshot) {
	m.theme = styles.New(snap)
	m.theme.SetSize(m.width, m.height)
	m.header.SetTheme(m.theme)
	if !m.markdown.Matches(snap.IsDark, bubbleWidth(m.width)) {
		m.markdown = components.NewMarkdown(snap.IsDark, bubbleWidth(m.width))
	}
	if m.screen == ScreenConversation {
		m.refreshConversation()
	}
}

// syncHeader sets the header for the current screen.
func (m *Model) syncHeader() {
	switch {
	case m.conn.IsConnected:
		m.header.Status = components.ConnOnline
	case m.conn.IsConnecting:
		m.header.Status = components.ConnConnecting
	default:
		m.header.Status = components.ConnOffline
	}

	m.header.Subtitle = ""
	if m.auth.User != nil {
		m.header.Subtitle = m.auth.User.Name
	}
	switch m.screen {
	case ScreenChats:
		m.header.Title = "Chats"
	case ScreenMembers:
		m.header.Title = "New Chat"
	case ScreenSettings:
		m.header.Title = "Settings"
	case ScreenConversation:
		m.header.Title, m.header.Subtitle = m.conversationTitle()
	}
}

func (m *Model) setNotice(s string) {
	m.notice, m.noticeErr = s, false
}

func (m *Model) setError(s string) {
	m.notice, m.noticeErr = s, true
}

func (m *Model) clearNotice() {
	m.notice, m.noticeErr = "", false
}

// describeError turns a failed request into a message for users.
func describeError(err error) string {
	var rej *api.ServerRejected
	var se *transport.ServerError
	switch {
	case errors.As(err, &rej):
		return rej.Message
	case errors.As(err, &se):
		return se.Message
	case errors.Is(err, transport.ErrNotConnected):
		return "Not connected to chat"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out. Check your connection and try again."
	case errors.Is(err, api.ErrNetwork):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, auth.ErrPersistAuth):
		return "Signed in, but the session could not be saved."
	default:
		return err.Error()
	}
}

func bubbleWidth(width int) int {
	return maxInt(width*2/3, 20)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
