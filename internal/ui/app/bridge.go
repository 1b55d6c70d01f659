// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
)

// =============================================================================
// CONTROLLER BRIDGE
// =============================================================================

// Attach subscribes to every controller in d and forwards notifications to
// send, normally (*tea.Program).Send. It also feeds transport events into the
// directory. The returned function detaches; it is safe to call twice.
func Attach(d Deps, send func(tea.Msg)) func() {
	var stops []func()

	if d.Theme != nil {
		stops = append(stops, d.Theme.Subscribe(func(s theme.Snapshot) {
			send(ThemeChangedMsg{Snapshot: s})
		}))
	}

	if d.Auth != nil {
		stops = append(stops, d.Auth.Subscribe(func(s auth.State) {
			// A different account never sees the previous one's chats.
			if d.Directory != nil && s.UserID() != d.Directory.Self() {
				d.Directory.Reset(s.UserID())
			}
			send(AuthChangedMsg{State: s})
		}))
	}

	if d.Roster != nil {
		stops = append(stops, d.Roster.Subscribe(func(s roster.Snapshot) {
			if d.Directory != nil && len(s.Entries) > 0 {
				d.Directory.SetPeople(s.Entries)
			}
			send(RosterChangedMsg{Snapshot: s})
		}))
	}

	if d.Session != nil {
		stops = append(stops, d.Session.Subscribe(func(st transport.Status) {
			send(ConnectionChangedMsg{Status: st})
		}))
	}

	if d.Directory != nil {
		stops = append(stops, d.Directory.Subscribe(func() {
			send(DirectoryChangedMsg{})
		}))
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	if d.Events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				case ev, ok := <-d.Events:
					if !ok {
						return
					}
					if d.Directory != nil && d.Directory.Apply(ev) {
						continue
					}
					send(TransportEventMsg{Event: ev})
				}
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			for _, stop := range stops {
				stop()
			}
		})
	}
}
