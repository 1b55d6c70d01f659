// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/devserver"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type backend struct {
	wsURL string
	api   *api.Client
	hub   *devserver.Hub
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	s, err := devserver.New(devserver.Config{
		Secret:     []byte("transport-test"),
		BcryptCost: bcrypt.MinCost,
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	s.AddHospital("MERCY", "Mercy General")

	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return &backend{
		wsURL: "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws",
		api:   api.NewClient(hs.URL+"/api", zerolog.Nop()).WithHTTPClient(hs.Client()).WithRateLimit(0, 0),
		hub:   s.Hub(),
	}
}

func (b *backend) user(t *testing.T, name string) api.User {
	t.Helper()
	resp, err := b.api.Register(context.Background(), api.RegisterRequest{
		Name:                 name,
		Email:                strings.ToLower(name) + "@mercy.org",
		Password:             "password123",
		PasswordConfirmation: "password123",
		HospitalCode:         "MERCY",
	})
	require.NoError(t, err)
	return resp.User
}

func (b *backend) connect(t *testing.T, u api.User) *transport.Client {
	t.Helper()
	c := transport.NewClient(b.wsURL, zerolog.Nop(),
		transport.WithDialer(&websocket.Dialer{HandshakeTimeout: 2 * time.Second}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, u.ID, u.StreamToken))
	t.Cleanup(func() { _ = c.Disconnect() })
	waitEvent(t, c, transport.EventConnected)
	return c
}

// waitEvent returns the next event of kind, skipping others.
func waitEvent(t *testing.T, c *transport.Client, kind transport.EventKind) transport.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
			return transport.Event{}
		}
	}
}

func reqCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRoundTrip(t *testing.T) {
	b := newBackend(t)
	ada, grace := b.user(t, "Ada"), b.user(t, "Grace")
	ca := b.connect(t, ada)
	cg := b.connect(t, grace)

	ch, err := ca.CreateChannel(reqCtx(t), []int64{grace.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.ElementsMatch(t, []int64{ada.ID, grace.ID}, ch.Members)
	assert.Equal(t, ada.ID, ch.CreatedBy)
	assert.False(t, ch.IsGroup())
	require.Len(t, b.hub.Channels(grace.ID), 1)
	assert.Equal(t, ch.ID, b.hub.Channels(grace.ID)[0].ID)

	// Grace learns about the channel without asking.
	ev := waitEvent(t, cg, transport.EventChannel)
	require.NotNil(t, ev.Channel)
	assert.Equal(t, ch.ID, ev.ChannelID)

	msg, err := ca.SendMessage(reqCtx(t), ch.ID, "  hello grace  ")
	require.NoError(t, err)
	assert.Equal(t, "hello grace", msg.Text)
	assert.Equal(t, "Ada", msg.UserName)
	assert.Equal(t, ch.ID, msg.ChannelID)

	ev = waitEvent(t, cg, transport.EventMessage)
	require.NotNil(t, ev.Message)
	assert.Equal(t, msg.ID, ev.Message.ID)
	assert.Equal(t, ch.ID, ev.ChannelID)

	st, err := cg.Watch(reqCtx(t), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, st.Channel.ID)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "hello grace", st.Messages[0].Text)
}

func TestSenderDoesNotGetOwnMessageTwice(t *testing.T) {
	b := newBackend(t)
	ada, grace := b.user(t, "Ada"), b.user(t, "Grace")
	ca := b.connect(t, ada)

	ch, err := ca.CreateChannel(reqCtx(t), []int64{grace.ID})
	require.NoError(t, err)
	_, err = ca.SendMessage(reqCtx(t), ch.ID, "one")
	require.NoError(t, err)

	select {
	case ev := <-ca.Events():
		assert.NotEqual(t, transport.EventMessage, ev.Kind, "reply should not also arrive as an event")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_Errors(t *testing.T) {
	b := newBackend(t)
	ada, grace, barbara := b.user(t, "Ada"), b.user(t, "Grace"), b.user(t, "Barbara")
	ca := b.connect(t, ada)
	cb := b.connect(t, barbara)

	_, err := ca.Watch(reqCtx(t), "missing")
	var se *transport.ServerError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, transport.CodeNotFound, se.Code)

	ch, err := ca.CreateChannel(reqCtx(t), []int64{grace.ID})
	require.NoError(t, err)

	_, err = cb.Watch(reqCtx(t), ch.ID)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, transport.CodeForbidden, se.Code)

	_, err = cb.SendMessage(reqCtx(t), ch.ID, "let me in")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, transport.CodeForbidden, se.Code)
}

func TestCreateChannel_UnknownMember(t *testing.T) {
	b := newBackend(t)
	ca := b.connect(t, b.user(t, "Ada"))

	_, err := ca.CreateChannel(reqCtx(t), []int64{9999})
	var se *transport.ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, transport.CodeNotFound, se.Code)

	_, err = ca.CreateChannel(reqCtx(t), nil)
	require.Error(t, err)
}

func TestGroupChannel(t *testing.T) {
	b := newBackend(t)
	ada, grace, barbara := b.user(t, "Ada"), b.user(t, "Grace"), b.user(t, "Barbara")
	ca := b.connect(t, ada)

	ch, err := ca.CreateChannel(reqCtx(t), []int64{grace.ID, barbara.ID, grace.ID})
	require.NoError(t, err)
	assert.Len(t, ch.Members, 3)
	assert.True(t, ch.IsGroup())
}

func TestPresence(t *testing.T) {
	b := newBackend(t)
	ada, grace := b.user(t, "Ada"), b.user(t, "Grace")
	ca := b.connect(t, ada)

	cg := b.connect(t, grace)
	ev := waitEvent(t, ca, transport.EventPresence)
	require.NotNil(t, ev.Presence)
	assert.Equal(t, grace.ID, ev.Presence.UserID)
	assert.True(t, ev.Presence.Online)

	require.NoError(t, cg.Disconnect())
	ev = waitEvent(t, ca, transport.EventPresence)
	assert.Equal(t, grace.ID, ev.Presence.UserID)
	assert.False(t, ev.Presence.Online)
}

func TestRequestsWhileDisconnected(t *testing.T) {
	c := transport.NewClient("ws://127.0.0.1:1/ws", zerolog.Nop())
	assert.False(t, c.Connected())

	_, err := c.Watch(context.Background(), "x")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
	_, err = c.SendMessage(context.Background(), "x", "hi")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
	_, err = c.CreateChannel(context.Background(), []int64{1})
	assert.ErrorIs(t, err, transport.ErrNotConnected)

	assert.NoError(t, c.Disconnect())
}

func TestConnect_Failures(t *testing.T) {
	b := newBackend(t)
	ada := b.user(t, "Ada")
	c := transport.NewClient(b.wsURL, zerolog.Nop())

	assert.ErrorIs(t, c.Connect(reqCtx(t), ada.ID, ""), transport.ErrMissingToken)

	err := c.Connect(reqCtx(t), ada.ID, "not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.False(t, c.Connected())

	bad := transport.NewClient("ftp://example.org/ws", zerolog.Nop())
	require.Error(t, bad.Connect(reqCtx(t), ada.ID, "tok"))
}

func TestConnect_IdempotentAndDisconnect(t *testing.T) {
	b := newBackend(t)
	ada := b.user(t, "Ada")
	c := b.connect(t, ada)

	require.NoError(t, c.Connect(reqCtx(t), ada.ID, ada.StreamToken))
	assert.True(t, c.Connected())
	assert.Equal(t, ada.ID, c.UserID())

	require.NoError(t, c.Disconnect())
	ev := waitEvent(t, c, transport.EventDisconnected)
	assert.NoError(t, ev.Err)
	assert.False(t, c.Connected())
	assert.Zero(t, c.UserID())

	// The same client reconnects.
	require.NoError(t, c.Connect(reqCtx(t), ada.ID, ada.StreamToken))
	assert.True(t, c.Connected())
}

func TestHTTPSchemeIsUpgraded(t *testing.T) {
	b := newBackend(t)
	ada := b.user(t, "Ada")
	c := transport.NewClient("http"+strings.TrimPrefix(b.wsURL, "ws"), zerolog.Nop(), transport.WithPingPeriod(time.Second))

	require.NoError(t, c.Connect(reqCtx(t), ada.ID, ada.StreamToken))
	t.Cleanup(func() { _ = c.Disconnect() })
	assert.True(t, c.Connected())
}
