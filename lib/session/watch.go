// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports removals of the session file made outside this
// process, such as "taskdesk logout" in another terminal.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *slog.Logger
	removed chan struct{}
	done    chan struct{}
}

// Watch starts watching the session file. The directory is created if
// needed, since the file itself may not exist yet.
func (s *Store) Watch() (*Watcher, error) {
	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating session watcher: %w", err)
	}
	if err := fsw.Add(directory); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", directory, err)
	}
	w := &Watcher{
		watcher: fsw,
		path:    filepath.Clean(s.path),
		logger:  s.logger,
		removed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("session file removed", "path", w.path)
			select {
			case w.removed <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error", "error", err)
		}
	}
}

// Removed receives a value after the session file disappears.
// Removals between two receives coalesce into one.
func (w *Watcher) Removed() <-chan struct{} { return w.removed }

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// Persisted reports whether the session file exists on disk.
func (s *Store) Persisted() bool {
	_, err := os.Stat(s.path)
	return !errors.Is(err, os.ErrNotExist)
}
