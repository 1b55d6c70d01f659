// devserver - local backend for chatrevamp: REST auth, hospital rosters and
// the websocket chat relay, all in memory.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatrevamp-tui/internal/cli"
	"github.com/jeranaias/chatrevamp-tui/internal/devserver"
	"github.com/jeranaias/chatrevamp-tui/internal/logging"
)

const usage = `devserver - local chatrevamp backend

Usage:
  devserver [--addr HOST:PORT] [--hospitals CODE=Name,...] [--seed]

Environment (also read from .env):
  DEVSERVER_ADDR        listen address (default 127.0.0.1:8000)
  DEVSERVER_SECRET      token signing key (random per run when unset)
  DEVSERVER_HOSPITALS   hospitals users can register into
  DEVSERVER_SEED        when "true", create demo users with password Password123
  DEVSERVER_LOG_LEVEL   debug, info, warn, error
`

const (
	defaultAddr      = "127.0.0.1:8000"
	defaultHospitals = "MERCY=Mercy General,ST-JUDE=St. Jude Children's"
	seedPassword     = "Password123"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
	}

	args := cli.NewArgParser(os.Args[1:])
	if args.BoolFlag("help") || args.BoolFlag("h") {
		fmt.Print(usage)
		return
	}

	log, _, err := logging.Setup(logging.Options{
		Level:   envOr("DEVSERVER_LOG_LEVEL", "info"),
		Console: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitConfigError)
	}

	if err := run(args, log); err != nil {
		log.Error().Err(err).Msg("devserver stopped")
		os.Exit(cli.ExitGeneralError)
	}
}

func run(args *cli.ArgParser, log zerolog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	secret := os.Getenv("DEVSERVER_SECRET")
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("DEVSERVER_SECRET not set; tokens will not survive a restart")
	}

	srv, err := devserver.New(devserver.Config{
		Secret: []byte(secret),
		Log:    log,
	})
	if err != nil {
		return err
	}

	hospitals, err := parseHospitals(args.FlagOrDefault("hospitals", envOr("DEVSERVER_HOSPITALS", defaultHospitals)))
	if err != nil {
		return err
	}
	for _, h := range hospitals {
		hosp := srv.AddHospital(h[0], h[1])
		log.Info().Str("code", h[0]).Int64("id", hosp.ID).Str("name", hosp.Name).Msg("hospital added")
	}

	if args.BoolFlag("seed") || strings.EqualFold(os.Getenv("DEVSERVER_SEED"), "true") {
		if err := seed(srv, hospitals[0][0], log); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := args.FlagOrDefault("addr", envOr("DEVSERVER_ADDR", defaultAddr))
	log.Info().
		Str("api", "http://"+addr+"/api").
		Str("chat", "ws://"+addr+"/ws").
		Msg("point CHATREVAMP_API_URL and CHATREVAMP_CHAT_URL here")

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// parseHospitals reads "CODE=Name,CODE=Name".
func parseHospitals(raw string) ([][2]string, error) {
	var out [][2]string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, name, ok := strings.Cut(part, "=")
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if !ok || code == "" || name == "" {
			return nil, fmt.Errorf("invalid hospital %q, want CODE=Name", part)
		}
		out = append(out, [2]string{code, name})
	}
	if len(out) == 0 {
		return nil, errors.New("at least one hospital is required")
	}
	return out, nil
}

func seed(srv *devserver.Server, code string, log zerolog.Logger) error {
	for _, u := range []struct{ name, email string }{
		{"Ada Lovelace", "ada@mercy.org"},
		{"Grace Hopper", "grace@mercy.org"},
		{"Barbara Liskov", "barbara@mercy.org"},
	} {
		user, err := srv.AddUser(u.name, u.email, seedPassword, code)
		if err != nil {
			return fmt.Errorf("seed %s: %w", u.email, err)
		}
		log.Info().Int64("id", user.ID).Str("email", user.Email).Msg("demo user created")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
