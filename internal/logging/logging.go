// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how verbosely to log.
type Options struct {
	Level string
	Path  string
	// Console writes human-readable output to Writer instead of JSON to Path.
	Console bool
	Writer  io.Writer
}

// Setup builds the root logger. The returned closer releases the log file and
// is safe to call when no file was opened.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("parse log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.Console:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case opts.Writer != nil:
		out = opts.Writer
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
