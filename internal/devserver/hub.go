// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	maxTextLength  = 4000
)

// peer is one websocket connection.
type peer struct {
	hub    *Hub
	ws     *websocket.Conn
	userID int64
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.done) })
}

type room struct {
	channel  transport.Channel
	messages []transport.Message
}

func (r *room) hasMember(id int64) bool {
	for _, m := range r.channel.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Hub relays chat frames between connected users.
type Hub struct {
	log    zerolog.Logger
	now    func() time.Time
	lookup func(id int64) (api.User, bool)

	mu       sync.RWMutex
	peers    map[int64]map[*peer]struct{}
	channels map[string]*room
}

func newHub(lookup func(int64) (api.User, bool), now func() time.Time, log zerolog.Logger) *Hub {
	return &Hub{
		log:      log.With().Str("component", "hub").Logger(),
		now:      now,
		lookup:   lookup,
		peers:    make(map[int64]map[*peer]struct{}),
		channels: make(map[string]*room),
	}
}

// Online reports whether userID has at least one open connection.
func (h *Hub) Online(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers[userID]) > 0
}

// Channels returns the channels userID belongs to, newest first.
func (h *Hub) Channels(userID int64) []transport.Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []transport.Channel
	for _, r := range h.channels {
		if r.hasMember(userID) {
			out = append(out, r.channel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// serve runs ws for userID until it closes.
func (h *Hub) serve(ws *websocket.Conn, userID int64) {
	p := &peer{
		hub:    h,
		ws:     ws,
		userID: userID,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	first := len(h.peers[userID]) == 0
	if h.peers[userID] == nil {
		h.peers[userID] = make(map[*peer]struct{})
	}
	h.peers[userID][p] = struct{}{}
	h.mu.Unlock()

	h.log.Info().Int64("user_id", userID).Msg("client connected")
	if first {
		h.broadcastPresence(userID, true)
	}

	go p.writePump()
	p.readPump()

	h.mu.Lock()
	delete(h.peers[userID], p)
	last := len(h.peers[userID]) == 0
	if last {
		delete(h.peers, userID)
	}
	h.mu.Unlock()

	h.log.Info().Int64("user_id", userID).Msg("client disconnected")
	if last {
		h.broadcastPresence(userID, false)
	}
}

func (p *peer) readPump() {
	defer p.close()

	p.ws.SetReadLimit(maxMessageSize)
	_ = p.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.hub.log.Warn().Err(err).Int64("user_id", p.userID).Msg("read error")
			}
			return
		}
		var env transport.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			p.reply(transport.Envelope{}, transport.CodeBadRequest, "invalid frame")
			continue
		}
		p.hub.handle(p, env)
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.ws.Close()
	}()

	for {
		select {
		case data := <-p.send:
			_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				p.close()
				return
			}
		case <-ticker.C:
			_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.close()
				return
			}
		case <-p.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = p.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func (p *peer) push(env transport.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		p.hub.log.Error().Err(err).Str("type", env.Type).Msg("encode frame")
		return
	}
	select {
	case p.send <- data:
	case <-p.done:
	default:
		p.hub.log.Warn().Int64("user_id", p.userID).Msg("send buffer full, closing client")
		p.close()
	}
}

// reply answers req with an error frame.
func (p *peer) reply(req transport.Envelope, code, message string) {
	env, _ := transport.NewEnvelope(transport.TypeError, req.ChannelID, transport.ErrorPayload{Code: code, Message: message})
	env.Ref = req.Ref
	p.push(env)
}

func (h *Hub) handle(p *peer, env transport.Envelope) {
	switch env.Type {
	case transport.TypeChannelCreate:
		h.createChannel(p, env)
	case transport.TypeChannelWatch:
		h.watch(p, env)
	case transport.TypeMessageSend:
		h.sendMessage(p, env)
	default:
		p.reply(env, transport.CodeBadRequest, "unknown frame type "+env.Type)
	}
}

func (h *Hub) createChannel(p *peer, req transport.Envelope) {
	var body transport.CreateChannelRequest
	if err := req.Decode(&body); err != nil {
		p.reply(req, transport.CodeBadRequest, "invalid payload")
		return
	}

	members := []int64{p.userID}
	seen := map[int64]bool{p.userID: true}
	for _, id := range body.Members {
		if seen[id] {
			continue
		}
		if _, ok := h.lookup(id); !ok {
			p.reply(req, transport.CodeNotFound, "unknown member")
			return
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 2 {
		p.reply(req, transport.CodeBadRequest, "a channel needs another member")
		return
	}

	ch := transport.Channel{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(body.Name),
		Members:   members,
		CreatedBy: p.userID,
		CreatedAt: h.now().UTC(),
	}
	h.mu.Lock()
	h.channels[ch.ID] = &room{channel: ch}
	h.mu.Unlock()

	h.log.Info().Str("channel_id", ch.ID).Int("members", len(members)).Msg("channel created")

	env, _ := transport.NewEnvelope(transport.TypeChannelCreated, ch.ID, ch)
	h.fanout(p, req.Ref, members, env)
}

func (h *Hub) watch(p *peer, req transport.Envelope) {
	h.mu.RLock()
	r, ok := h.channels[req.ChannelID]
	var st transport.ChannelState
	if ok && r.hasMember(p.userID) {
		st.Channel = r.channel
		st.Messages = append([]transport.Message{}, r.messages...)
	}
	h.mu.RUnlock()

	if !ok {
		p.reply(req, transport.CodeNotFound, "channel not found")
		return
	}
	if st.Channel.ID == "" {
		p.reply(req, transport.CodeForbidden, "not a member of this channel")
		return
	}

	env, _ := transport.NewEnvelope(transport.TypeChannelState, req.ChannelID, st)
	env.Ref = req.Ref
	p.push(env)
}

func (h *Hub) sendMessage(p *peer, req transport.Envelope) {
	var body transport.SendMessageRequest
	if err := req.Decode(&body); err != nil {
		p.reply(req, transport.CodeBadRequest, "invalid payload")
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" || len(text) > maxTextLength {
		p.reply(req, transport.CodeBadRequest, "message text is empty or too long")
		return
	}

	sender, _ := h.lookup(p.userID)
	msg := transport.Message{
		ID:        uuid.NewString(),
		ChannelID: req.ChannelID,
		UserID:    p.userID,
		UserName:  sender.Name,
		Text:      text,
		CreatedAt: h.now().UTC(),
	}

	h.mu.Lock()
	r, ok := h.channels[req.ChannelID]
	member := ok && r.hasMember(p.userID)
	var members []int64
	if member {
		r.messages = append(r.messages, msg)
		members = append(members, r.channel.Members...)
	}
	h.mu.Unlock()

	if !ok {
		p.reply(req, transport.CodeNotFound, "channel not found")
		return
	}
	if !member {
		p.reply(req, transport.CodeForbidden, "not a member of this channel")
		return
	}

	env, _ := transport.NewEnvelope(transport.TypeMessageNew, req.ChannelID, msg)
	h.fanout(p, req.Ref, members, env)
}

// fanout sends env to every connection of members. The requesting peer gets
// it with ref set so its request completes; everyone else gets it unsolicited.
func (h *Hub) fanout(origin *peer, ref string, members []int64, env transport.Envelope) {
	h.mu.RLock()
	var targets []*peer
	for _, id := range members {
		for p := range h.peers[id] {
			if p != origin {
				targets = append(targets, p)
			}
		}
	}
	h.mu.RUnlock()

	answer := env
	answer.Ref = ref
	origin.push(answer)
	for _, p := range targets {
		p.push(env)
	}
}

func (h *Hub) broadcastPresence(userID int64, online bool) {
	env, _ := transport.NewEnvelope(transport.TypePresence, "", transport.Presence{UserID: userID, Online: online})

	h.mu.RLock()
	var targets []*peer
	for id, set := range h.peers {
		if id == userID {
			continue
		}
		for p := range set {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range targets {
		p.push(env)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.RLock()
	var all []*peer
	for _, set := range h.peers {
		for p := range set {
			all = append(all, p)
		}
	}
	h.mu.RUnlock()
	for _, p := range all {
		p.close()
	}
}
