// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame types.
const (
	// Client to server.
	TypeChannelCreate = "channel.create"
	TypeChannelWatch  = "channel.watch"
	TypeMessageSend   = "message.send"

	// Server to client.
	TypeChannelCreated = "channel.created"
	TypeChannelState   = "channel.state"
	TypeMessageNew     = "message.new"
	TypePresence       = "presence"
	TypeError          = "error"
)

// Envelope is one websocket frame.
type Envelope struct {
	Type      string          `json:"type"`
	Ref       string          `json:"ref,omitempty"`
	ChannelID string          `json:"channel_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts"`
}

// NewEnvelope marshals payload into a frame stamped with the current time.
func NewEnvelope(typ, channelID string, payload any) (Envelope, error) {
	env := Envelope{Type: typ, ChannelID: channelID, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode %s: %w", typ, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}

// Channel is a conversation between members.
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Members   []int64   `json:"members"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// IsGroup reports whether the channel has more than two members.
func (c Channel) IsGroup() bool { return len(c.Members) > 2 }

// Message is one chat message.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelState is the reply to a watch: the channel and its history, oldest
// first.
type ChannelState struct {
	Channel  Channel   `json:"channel"`
	Messages []Message `json:"messages"`
}

// Presence reports a member going online or offline.
type Presence struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

// CreateChannelRequest is the payload of channel.create.
type CreateChannelRequest struct {
	Members []int64 `json:"members"`
	Name    string  `json:"name,omitempty"`
}

// SendMessageRequest is the payload of message.send.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes sent by the server.
const (
	CodeBadRequest = "bad_request"
	CodeNotFound   = "not_found"
	CodeForbidden  = "forbidden"
)

// ServerError is an error frame answering a request.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
