// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the chat-list domain: chats, their messages, and
// the search and category filters of the chats screen.
//
// # Key Types
//
//   - Chat: one row of the chats screen, with its counterpart, last message,
//     unread count, pin state and category
//   - ChatMessage: a message as the screens show it
//   - Conversation: the bounded message history of one channel
//   - Directory: the live set of chats, fed by transport events
//
// # Usage
//
//	dir := model.NewDirectory()
//	dir.Reset(me.ID)
//	dir.SetPeople(members)
//	dir.Apply(ev) // for every transport.Event
//	rows := model.Filter(dir.Chats(), query, model.CategoryWork)
package model
