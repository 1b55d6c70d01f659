// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// chatrevamp.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    err = cli.HandleLogin(ctx, env, args)
//	case cli.CmdMembers:
//	    err = cli.HandleMembers(ctx, env, args)
//	// ...
//	}
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands
//
//   - tui: the full-screen chat client (default)
//   - login, register, logout, whoami: manage the saved session
//   - theme: show or set the light, dark or system preference
//   - members: list the hospital roster through the cache
//   - config: show, get or set keys in the config file
//   - version, help
//
// Every command accepts --json for machine-readable output and --quiet to
// print only errors.
package cli
