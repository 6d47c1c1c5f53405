// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps a local, append-only record of execution
// outcomes.
//
// The journal file is a CBOR sequence: one [Entry] per terminal
// transition (succeeded, failed, poll error, rejected), appended in
// the order they happened. A record cut short by a crash ends the
// readable history; everything before it is still returned.
//
// [Recorder] adapts a Journal to taskrun.Observer. It hands entries to
// a background writer so a slow disk never holds up the poll state
// machine, and it logs write failures instead of returning them.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taskdesk/taskdesk/lib/codec"
	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// Outcome names how an execution ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomePollError Outcome = "poll_error"
	OutcomeRejected  Outcome = "rejected"
)

// Entry is one journal record.
type Entry struct {
	RecordedAt time.Time `cbor:"recorded_at" json:"recorded_at"`
	Module     string    `cbor:"module" json:"module"`
	Script     string    `cbor:"script" json:"script"`
	TaskID     string    `cbor:"task_id,omitempty" json:"task_id,omitempty"`
	Outcome    Outcome   `cbor:"outcome" json:"outcome"`
	Status     string    `cbor:"status,omitempty" json:"status,omitempty"`
	Error      string    `cbor:"error,omitempty" json:"error,omitempty"`

	// Result is the task's JSON result, stored as bytes.
	Result json.RawMessage `cbor:"result,omitempty" json:"result,omitempty"`
}

// EntryFromEvent builds an Entry for a terminal event. It reports
// false for non-terminal events.
func EntryFromEvent(event taskrun.Event, errorText func(error) string) (Entry, bool) {
	var outcome Outcome
	switch event.Kind {
	case taskrun.EventSucceeded:
		outcome = OutcomeSucceeded
	case taskrun.EventFailed:
		outcome = OutcomeFailed
	case taskrun.EventPollError:
		outcome = OutcomePollError
	case taskrun.EventRejected:
		outcome = OutcomeRejected
	default:
		return Entry{}, false
	}
	entry := Entry{
		RecordedAt: event.Time,
		Module:     event.Key.ModuleID,
		Script:     event.Key.ScriptID,
		TaskID:     event.TaskID,
		Outcome:    outcome,
		Status:     event.Status,
		Result:     event.Result,
	}
	if event.Err != nil {
		if errorText != nil {
			entry.Error = errorText(event.Err)
		} else {
			entry.Error = event.Err.Error()
		}
	}
	return entry, true
}

// Journal is a journal file. It is safe for concurrent use within one
// process.
type Journal struct {
	path string

	mu sync.Mutex
}

// Open returns the journal at path. The file is created on first
// Append.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	return &Journal{path: path}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Append writes entry to the end of the journal.
func (j *Journal) Append(entry Entry) error {
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: encoding entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	directory := filepath.Dir(j.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("journal: creating directory %s: %w", directory, err)
	}
	file, err := os.OpenFile(j.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("journal: opening %s: %w", j.path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("journal: writing %s: %w", j.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("journal: closing %s: %w", j.path, err)
	}
	return nil
}

// List returns up to limit of the most recent entries, newest first.
// A limit of zero or less returns every entry. A missing journal is
// empty.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: opening %s: %w", j.path, err)
	}
	defer file.Close()

	var entries []Entry
	decoder := codec.NewDecoder(file)
	for {
		var entry Entry
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// Truncated tail record.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("journal: decoding %s after %d entries: %w", j.path, len(entries), err)
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) > limit {
			entries = entries[1:]
		}
	}

	for left, right := 0, len(entries)-1; left < right; left, right = left+1, right-1 {
		entries[left], entries[right] = entries[right], entries[left]
	}
	return entries, nil
}

// Recorder journals terminal taskrun events from a background
// goroutine. Call Close to flush.
type Recorder struct {
	journal   *Journal
	logger    *slog.Logger
	errorText func(error) string

	entries chan Entry
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// recorderBuffer bounds queued entries. Entries beyond it are dropped
// with a warning.
const recorderBuffer = 64

// NewRecorder starts a Recorder. errorText converts event errors to
// stored text; nil uses err.Error().
func NewRecorder(journal *Journal, logger *slog.Logger, errorText func(error) string) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	recorder := &Recorder{
		journal:   journal,
		logger:    logger,
		errorText: errorText,
		entries:   make(chan Entry, recorderBuffer),
		done:      make(chan struct{}),
	}
	go recorder.run()
	return recorder
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		if err := r.journal.Append(entry); err != nil {
			r.logger.Warn("journal write failed",
				"path", r.journal.Path(),
				"task_id", entry.TaskID,
				"error", err,
			)
		}
	}
}

// Observe implements taskrun.Observer. It never blocks.
func (r *Recorder) Observe(event taskrun.Event) {
	entry, ok := EntryFromEvent(event, r.errorText)
	if !ok {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("journal queue full, dropping entry",
			"module", entry.Module,
			"script", entry.Script,
			"task_id", entry.TaskID,
		)
	}
}

// Close stops accepting entries and waits for queued ones to be
// written.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.entries)
		r.mu.Unlock()
	})
	<-r.done
}
