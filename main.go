// chatrevamp - hospital team chat in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/appearance"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
	"github.com/jeranaias/chatrevamp-tui/internal/cli"
	"github.com/jeranaias/chatrevamp-tui/internal/config"
	"github.com/jeranaias/chatrevamp-tui/internal/logging"
	"github.com/jeranaias/chatrevamp-tui/internal/model"
	"github.com/jeranaias/chatrevamp-tui/internal/roster"
	"github.com/jeranaias/chatrevamp-tui/internal/storage"
	"github.com/jeranaias/chatrevamp-tui/internal/theme"
	"github.com/jeranaias/chatrevamp-tui/internal/transport"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// appearanceDebounce absorbs editors that write the scheme file in bursts.
const appearanceDebounce = 150 * time.Millisecond

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return finish(cli.HandleVersion(os.Stdout, args), args)
	case cli.CmdUnknown:
		return finish(cli.HandleUnknown(args), args)
	case cli.CmdConfig:
		return finish(cli.HandleConfig(os.Stdout, args), args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := setup(ctx, cmd, args)
	if err != nil {
		return finish(err, args)
	}
	defer svc.Close()

	if cmd == cli.CmdTUI {
		return finish(runTUI(ctx, svc), args)
	}
	return finish(runCommand(ctx, cmd, svc, args), args)
}

// finish reports err once and returns the exit code.
func finish(err error, args cli.Args) int {
	if err == nil {
		return cli.ExitSuccess
	}
	w := io.Writer(os.Stderr)
	if args.JSON {
		w = os.Stdout
	}
	cli.DisplayError(w, err, args.JSON)
	return cli.GetExitCode(err)
}

// =============================================================================
// SERVICES
// =============================================================================

// services holds the controllers shared by the TUI and the commands.
type services struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  storage.Store
	api    *api.Client
	theme  *theme.Controller
	auth   *auth.Controller
	roster *roster.Controller

	closers []func()
}

func setup(ctx context.Context, cmd cli.Command, args cli.Args) (*services, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	svc := &services{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			svc.Close()
		}
	}()

	// The TUI owns the terminal, so it always logs to the file.
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	opts := logging.Options{Level: cfg.Log.Level, Path: logPath}
	if args.Verbose && cmd != cli.CmdTUI {
		opts.Level, opts.Console = "debug", true
	}
	log, logCloser, err := logging.Setup(opts)
	if err != nil {
		return nil, err
	}
	svc.log = logging.Component(log, "main")
	svc.closers = append(svc.closers, func() { _ = logCloser.Close() })

	storePath, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Backend, storePath)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	svc.store = store
	svc.closers = append(svc.closers, func() { _ = store.Close() })

	svc.theme = theme.NewController(store, log)
	svc.closers = append(svc.closers, svc.theme.Wait)
	svc.theme.Initialize(ctx)
	if cli.IsStdoutTTY() {
		svc.theme.SetSystemScheme(appearance.Terminal())
	}

	svc.api = api.NewClient(cfg.API.BaseURL, log).
		WithTimeout(cfg.APITimeout()).
		WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateBurst)

	svc.auth = auth.NewController(svc.api, store, log)
	svc.auth.LoadStored(ctx)

	svc.roster = roster.NewController(svc.api, svc.auth, log, roster.WithTTL(cfg.RosterTTL()))
	unbind := roster.BindAuth(svc.roster, svc.auth)
	svc.closers = append(svc.closers, unbind)

	svc.log.Debug().
		Str("command", cmd.String()).
		Str("api", cfg.API.BaseURL).
		Str("storage", cfg.Storage.Backend).
		Msg("services ready")
	ok = true
	return svc, nil
}

// Close releases resources in reverse order of acquisition.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func runCommand(ctx context.Context, cmd cli.Command, svc *services, args cli.Args) error {
	env := &cli.Env{
		Auth:   svc.auth,
		Theme:  svc.theme,
		Roster: svc.roster,
		Out:    os.Stdout,
	}

	switch cmd {
	case cli.CmdLogin, cli.CmdRegister:
		p := cli.NewTermPrompter()
		defer p.Close()
		env.Prompt = p
		if cmd == cli.CmdLogin {
			return cli.HandleLogin(ctx, env, args)
		}
		return cli.HandleRegister(ctx, env, args)
	case cli.CmdLogout:
		return cli.HandleLogout(ctx, env, args)
	case cli.CmdWhoami:
		return cli.HandleWhoami(env, args)
	case cli.CmdTheme:
		return cli.HandleTheme(ctx, env, args)
	case cli.CmdMembers:
		return cli.HandleMembers(ctx, env, args)
	}
	return fmt.Errorf("command %s has no handler", cmd)
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(ctx context.Context, svc *services) error {
	cfg := svc.cfg

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if path := cfg.UI.AppearanceFile; path != "" {
		w, err := appearance.NewWatcher(path, appearanceDebounce, svc.log)
		if err != nil {
			svc.log.Warn().Err(err).Str("path", path).Msg("appearance file not watched")
		} else {
			defer w.Close()
			go w.Run(ctx, svc.theme.SetSystemScheme)
		}
	}

	chat := transport.NewClient(cfg.Chat.URL, svc.log, transport.WithPingPeriod(cfg.PingInterval()))
	session := transport.NewSession(chat, svc.log)
	defer session.Close()
	if cfg.Chat.AutoConnect {
		unbind := transport.BindAuth(ctx, session, svc.auth)
		defer unbind()
	}

	deps := app.Deps{
		Theme:          svc.theme,
		Auth:           svc.auth,
		Roster:         svc.roster,
		Session:        session,
		Chat:           chat,
		Events:         chat.Events(),
		Directory:      model.NewDirectory(),
		Log:            svc.log,
		RequestTimeout: cfg.APITimeout(),
		ShowTimestamps: cfg.UI.ShowTimestamps,
		Compact:        cfg.UI.CompactMode,
	}

	p := tea.NewProgram(
		app.New(ctx, deps),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	detach := app.Attach(deps, p.Send)
	defer detach()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
