// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Default interval between pings. Reads time out if no pong arrives
	// within pingPeriod*10/9.
	DefaultPingPeriod = 54 * time.Second

	// Largest frame accepted from the server.
	maxMessageSize = 512 * 1024

	sendBuffer   = 64
	eventsBuffer = 256
)

var (
	// ErrNotConnected is returned by requests made while disconnected, and by
	// requests still waiting when the connection goes away.
	ErrNotConnected = errors.New("chat not connected")

	// ErrMissingToken is returned by Connect without a stream token.
	ErrMissingToken = errors.New("missing stream token")
)

// EventKind identifies what an Event carries.
type EventKind int

const (
	EventMessage EventKind = iota + 1
	EventChannel
	EventPresence
	EventError
	EventConnected
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventChannel:
		return "channel"
	case EventPresence:
		return "presence"
	case EventError:
		return "error"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is something the server pushed, or a change of connection state.
type Event struct {
	Kind      EventKind
	ChannelID string
	Message   *Message
	Channel   *Channel
	Presence  *Presence
	// Err is set on EventError, and on EventDisconnected when the connection
	// dropped rather than being closed by Disconnect.
	Err error
}

// Option configures a Client.
type Option func(*Client)

// WithPingPeriod overrides DefaultPingPeriod.
func WithPingPeriod(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingPeriod = d
		}
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// conn is one live websocket plus its pumps.
type conn struct {
	ws     *websocket.Conn
	userID int64
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (cn *conn) close() {
	cn.once.Do(func() { close(cn.done) })
}

// Client is a chat connection that survives reconnects: Events() stays the
// same channel for the life of the Client.
type Client struct {
	url        string
	dialer     *websocket.Dialer
	pingPeriod time.Duration
	log        zerolog.Logger
	events     chan Event

	mu      sync.Mutex
	cur     *conn
	pending map[string]chan Envelope
}

// NewClient creates a disconnected client for the websocket endpoint rawURL.
func NewClient(rawURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimRight(rawURL, "/"),
		dialer:     websocket.DefaultDialer,
		pingPeriod: DefaultPingPeriod,
		log:        log.With().Str("component", "transport").Logger(),
		events:     make(chan Event, eventsBuffer),
		pending:    make(map[string]chan Envelope),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string { return c.url }

// Events delivers pushed frames and connection changes. Events are dropped
// when nobody keeps up with the buffer.
func (c *Client) Events() <-chan Event { return c.events }

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

// UserID returns the id the open connection belongs to, or 0.
func (c *Client) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return 0
	}
	return c.cur.userID
}

// Connect opens a connection for userID. It is a no-op when that user is
// already connected; a connection for another user is closed first.
func (c *Client) Connect(ctx context.Context, userID int64, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	c.mu.Lock()
	if c.cur != nil && c.cur.userID == userID {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if err := c.Disconnect(); err != nil {
		return err
	}

	target, err := c.dialURL(userID, token)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	ws, resp, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect chat: %w (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connect chat: %w", err)
	}

	cn := &conn{
		ws:     ws,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if c.cur != nil {
		// Lost a race with another Connect.
		c.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	c.cur = cn
	c.mu.Unlock()

	go c.writePump(cn)
	go c.readPump(cn)

	c.log.Info().Int64("user_id", userID).Dur("duration", time.Since(start)).Msg("chat connected")
	c.emit(Event{Kind: EventConnected})
	return nil
}

func (c *Client) dialURL(userID int64, token string) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("chat url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("chat url: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Disconnect closes the open connection, if any. Requests still waiting fail
// with ErrNotConnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cn := c.cur
	c.cur = nil
	c.mu.Unlock()
	if cn == nil {
		return nil
	}

	cn.close()
	c.log.Info().Int64("user_id", cn.userID).Msg("chat disconnected")
	c.emit(Event{Kind: EventDisconnected})
	return nil
}

// drop forgets cn after its read pump failed.
func (c *Client) drop(cn *conn, err error) {
	cn.close()

	c.mu.Lock()
	current := c.cur == cn
	if current {
		c.cur = nil
	}
	c.mu.Unlock()
	if !current {
		return
	}

	c.log.Warn().Err(err).Int64("user_id", cn.userID).Msg("chat connection lost")
	c.emit(Event{Kind: EventDisconnected, Err: err})
}

// CreateChannel opens a channel with members. The caller is added by the
// server when missing.
func (c *Client) CreateChannel(ctx context.Context, members []int64) (*Channel, error) {
	if len(members) == 0 {
		return nil, errors.New("create channel: no members")
	}
	var ch Channel
	if err := c.request(ctx, TypeChannelCreate, "", CreateChannelRequest{Members: members}, TypeChannelCreated, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Watch subscribes to channelID and returns its history.
func (c *Client) Watch(ctx context.Context, channelID string) (*ChannelState, error) {
	var st ChannelState
	if err := c.request(ctx, TypeChannelWatch, channelID, nil, TypeChannelState, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SendMessage posts text to channelID and returns the stored message.
func (c *Client) SendMessage(ctx context.Context, channelID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("send message: empty text")
	}
	var msg Message
	if err := c.request(ctx, TypeMessageSend, channelID, SendMessageRequest{Text: text}, TypeMessageNew, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// request sends one frame and waits for the frame carrying the same ref.
func (c *Client) request(ctx context.Context, typ, channelID string, payload any, want string, out any) error {
	env, err := NewEnvelope(typ, channelID, payload)
	if err != nil {
		return err
	}
	env.Ref = uuid.NewString()
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}

	reply := make(chan Envelope, 1)
	c.mu.Lock()
	cn := c.cur
	if cn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.pending[env.Ref] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, env.Ref)
		c.mu.Unlock()
	}()

	select {
	case cn.send <- data:
	case <-cn.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case got := <-reply:
		if got.Type == TypeError {
			var p ErrorPayload
			if err := got.Decode(&p); err != nil {
				return &ServerError{Message: "request failed"}
			}
			return &ServerError{Code: p.Code, Message: p.Message}
		}
		if got.Type != want {
			return fmt.Errorf("%s: unexpected reply %q", typ, got.Type)
		}
		return got.Decode(out)
	case <-cn.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readPump(cn *conn) {
	pongWait := c.pingPeriod * 10 / 9
	cn.ws.SetReadLimit(maxMessageSize)
	_ = cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	cn.ws.SetPongHandler(func(string) error {
		return cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			select {
			case <-cn.done:
				// Closed by Disconnect.
			default:
				c.drop(cn, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn().Err(err).Msg("discarding undecodable frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) writePump(cn *conn) {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cn.ws.Close()
	}()

	for {
		select {
		case data := <-cn.send:
			_ = cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.drop(cn, err)
				return
			}
		case <-ticker.C:
			_ = cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drop(cn, err)
				return
			}
		case <-cn.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = cn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Client) dispatch(env Envelope) {
	if env.Ref != "" {
		c.mu.Lock()
		reply, ok := c.pending[env.Ref]
		c.mu.Unlock()
		if ok {
			select {
			case reply <- env:
			default:
			}
			return
		}
	}

	ev, err := decodeEvent(env)
	if err != nil {
		c.log.Warn().Err(err).Str("type", env.Type).Msg("discarding frame")
		return
	}
	c.emit(ev)
}

func decodeEvent(env Envelope) (Event, error) {
	ev := Event{ChannelID: env.ChannelID}
	switch env.Type {
	case TypeMessageNew:
		var m Message
		if err := env.Decode(&m); err != nil {
			return ev, err
		}
		if ev.ChannelID == "" {
			ev.ChannelID = m.ChannelID
		}
		ev.Kind, ev.Message = EventMessage, &m
	case TypeChannelCreated:
		var ch Channel
		if err := env.Decode(&ch); err != nil {
			return ev, err
		}
		ev.ChannelID = ch.ID
		ev.Kind, ev.Channel = EventChannel, &ch
	case TypePresence:
		var p Presence
		if err := env.Decode(&p); err != nil {
			return ev, err
		}
		ev.Kind, ev.Presence = EventPresence, &p
	case TypeError:
		var p ErrorPayload
		if err := env.Decode(&p); err != nil {
			return ev, err
		}
		ev.Kind, ev.Err = EventError, &ServerError{Code: p.Code, Message: p.Message}
	default:
		return ev, fmt.Errorf("unknown frame type %q", env.Type)
	}
	return ev, nil
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn().Stringer("kind", ev.Kind).Msg("event buffer full, dropping event")
	}
}
