// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package appearance

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the write bursts editors and scripts produce.
const DefaultDebounce = 150 * time.Millisecond

// Watcher follows an appearance file and reports each change of scheme.
type Watcher struct {
	path     string
	debounce time.Duration
	log      zerolog.Logger
	watcher  *fsnotify.Watcher

	mu   sync.Mutex
	last string
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// files replaced by rename are still followed.
func NewWatcher(path string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve appearance file: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		log:      log.With().Str("component", "appearance").Str("path", abs).Logger(),
		watcher:  fw,
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run reports the current scheme (if the file exists) and then every change
// until ctx is cancelled or the watcher is closed. fn runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(scheme string)) {
	w.emit(fn)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.emit(fn)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("appearance watcher error")
		}
	}
}

// emit reads the file and calls fn when the scheme differs from the last report.
func (w *Watcher) emit(fn func(string)) {
	scheme, err := ReadFile(w.path)
	if err != nil {
		w.log.Debug().Err(err).Msg("appearance file unreadable")
		return
	}

	w.mu.Lock()
	changed := scheme != w.last
	w.last = scheme
	w.mu.Unlock()

	if changed {
		w.log.Debug().Str("scheme", scheme).Msg("system appearance changed")
		fn(scheme)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
