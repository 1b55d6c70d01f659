// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package roster

import "github.com/jeranaias/chatrevamp-tui/internal/auth"

// BindAuth keeps the cache owner in step with the auth session and returns a
// function that stops following it.
func BindAuth(c *Controller, a *auth.Controller) func() {
	s := a.State()
	c.SetIdentity(s.UserID(), s.IsAuthenticated)
	return a.Subscribe(func(s auth.State) {
		c.SetIdentity(s.UserID(), s.IsAuthenticated)
	})
}
