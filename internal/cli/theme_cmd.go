// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// theme_cmd.go - Show or change the theme preference.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// HandleTheme lists the three preferences, or stores the one named in args.
func HandleTheme(ctx context.Context, env *Env, args Args) error {
	if args.ThemeMode != "" {
		mode, ok := theme.ParseMode(args.ThemeMode)
		if !ok {
			return &UsageError{
				Reason:  fmt.Sprintf("unknown theme %q (want light, dark or system)", args.ThemeMode),
				Example: "chatrevamp theme dark",
			}
		}
		env.Theme.SetTheme(ctx, mode)
		env.Theme.Wait()
	}

	snap := env.Theme.Snapshot()
	if args.JSON {
		return NewJSONResponse("theme", ThemeData{Mode: string(snap.Mode), IsDark: snap.IsDark}).Print(env.Out)
	}

	if args.ThemeMode != "" {
		env.say(args, "%s Theme set to %s", SuccessStyle.Render("✓"), snap.Mode.Label())
		return nil
	}

	env.say(args, "%s", TitleStyle.Render("Theme"))
	for _, m := range theme.Modes {
		name := util.PadRight(m.Label(), 8)
		marker, label := "  ", ValueStyle.Render(name)
		if m == snap.Mode {
			marker, label = HighlightStyle.Render("● "), HighlightStyle.Render(name)
		}
		env.say(args, "%s%s %s", marker, label, DimStyle.Render(m.Description()))
	}
	resolved := "light"
	if snap.IsDark {
		resolved = "dark"
	}
	env.say(args, "\n%s", DimStyle.Render("Currently rendering "+resolved+"."))
	return nil
}
