// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"time"

	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

// =============================================================================
// CONTROLLER NOTIFICATIONS
// =============================================================================

// ThemeChangedMsg carries the resolved theme after a change.
type ThemeChangedMsg struct{ Snapshot theme.Snapshot }

// AuthChangedMsg carries the session after a change.
type AuthChangedMsg struct{ State auth.State }

// RosterChangedMsg carries the roster cache after a change.
type RosterChangedMsg struct{ Snapshot roster.Snapshot }

// ConnectionChangedMsg carries the transport status after a change.
type ConnectionChangedMsg struct{ Status transport.Status }

// DirectoryChangedMsg reports that chats or messages changed.
type DirectoryChangedMsg struct{}

// TransportEventMsg carries transport events the directory does not absorb,
// such as errors and disconnects.
type TransportEventMsg struct{ Event transport.Event }

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// authResultMsg is the outcome of a login or register submit.
type authResultMsg struct{ err error }

// rosterFetchedMsg is the outcome of a roster fetch. Its state arrives
// through RosterChangedMsg.
type rosterFetchedMsg struct{ err error }

// channelCreatedMsg is the outcome of starting a chat.
type channelCreatedMsg struct {
	channel *transport.Channel
	err     error
}

// historyMsg is the answer to watching a channel.
type historyMsg struct {
	channelID string
	state     *transport.ChannelState
	err       error
}

// sentMsg is the outcome of sending a message.
type sentMsg struct {
	channelID string
	text      string
	message   *transport.Message
	err       error
}

// reconnectedMsg reports that a manual reconnect attempt finished.
type reconnectedMsg struct{}

// tickMsg refreshes relative times on screen.
type tickMsg time.Time
