// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// members_cmd.go - List the signed-in user's hospital roster.

package cli

import (
	"context"
	"time"

	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// HandleMembers fetches the roster through the cache and prints it.
// --refresh bypasses a still-valid cache.
func HandleMembers(ctx context.Context, env *Env, args Args) error {
	userID, _, ok := env.Auth.Credentials()
	if !ok {
		return ErrNotSignedIn
	}
	if err := env.Roster.Fetch(ctx, userID, args.Refresh); err != nil {
		return err
	}

	snap := env.Roster.Snapshot()
	if args.JSON {
		data := MembersData{Count: len(snap.Entries), Members: make([]MemberData, 0, len(snap.Entries))}
		if !snap.FetchedAt.IsZero() {
			data.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
		}
		for _, m := range snap.Entries {
			data.Members = append(data.Members, MemberData{ID: m.ID, Name: m.Name, Email: m.Email})
		}
		return NewJSONResponse("members", data).Print(env.Out)
	}

	env.say(args, "%s", TitleStyle.Render("Members"))
	if len(snap.Entries) == 0 {
		env.say(args, "%s", DimStyle.Render("No other members in your hospital yet."))
		return nil
	}

	nameWidth := GetTerminalWidth() / 2
	if nameWidth > 32 {
		nameWidth = 32
	}
	for _, m := range snap.Entries {
		name := util.PadRight(util.Truncate(m.Name, nameWidth), nameWidth)
		env.say(args, "  %s %s", ValueStyle.Render(name), DimStyle.Render(m.Email))
	}
	env.say(args, "%s", RenderSeparator())
	env.say(args, "%s", DimStyle.Render(env.Roster.LastUpdatedLabel(env.now())))
	return nil
}
