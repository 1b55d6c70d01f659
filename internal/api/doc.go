// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the chatrevamp REST backend.
//
// Endpoints (relative to the base URL, default http://127.0.0.1:8000/api):
//
//	POST /login        {email, password}                  -> {user, token}
//	POST /register     {name, email, password, ...}       -> {user, token, hospital}
//	POST /logout       bearer                             -> {message}
//	GET  /users/{id}   bearer                             -> {success, message, data: [member]}
//
// # Errors
//
// Every failure is one of three types, matchable with errors.Is:
//
//   - *NetworkError (ErrNetwork): the request never produced a response
//   - *ServerRejected (ErrRejected): the server answered with a failure and a message
//   - *MalformedResponse (ErrMalformed): the body could not be read as the expected shape
package api
