// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport is the realtime chat connection.
//
// Client speaks a small JSON protocol over a websocket: every frame is an
// Envelope carrying a type, an optional channel id, a payload and a
// timestamp. Requests carry a ref which the server echoes on the reply, so
// CreateChannel, Watch and SendMessage block until their answer arrives.
// Everything else the server pushes is decoded into an Event and delivered
// on Events().
//
// Session ties a Client to the auth session: it connects once a user with a
// stream token is signed in and disconnects on logout.
package transport
