// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// Block is one rendered unit of a region: the outcome of a single
// lifecycle event.
type Block struct {
	Kind    taskrun.EventKind
	Time    time.Time
	TaskID  string
	Status  string
	Message string

	// Result is the task's JSON payload, if any.
	Result json.RawMessage

	// Error is the user-facing failure text for rejected, failed and
	// poll-error blocks.
	Error string
}

// BlockFromEvent converts a lifecycle event into a display block.
func BlockFromEvent(event taskrun.Event) Block {
	block := Block{
		Kind:    event.Kind,
		Time:    event.Time,
		TaskID:  event.TaskID,
		Status:  event.Status,
		Message: event.Message,
		Result:  event.Result,
	}
	if event.Err != nil {
		block.Error = ErrorText(event.Err)
	}
	return block
}

// BlockFromStatus renders a one-off status query the way the
// matching lifecycle event would be.
func BlockFromStatus(status *taskapi.TaskStatus) Block {
	block := Block{TaskID: status.TaskID, Status: status.Status, Result: status.Result}
	switch status.Status {
	case taskapi.StatusSuccess:
		block.Kind = taskrun.EventSucceeded
	case taskapi.StatusFailed:
		block.Kind = taskrun.EventFailed
		block.Error = ErrorText(&taskrun.JobFailed{TaskID: status.TaskID, Message: status.Error})
		block.Result = nil
	default:
		block.Kind = taskrun.EventRunning
	}
	return block
}

// ErrorText is the user-facing text of a task event error.
func ErrorText(err error) string {
	var rejection *taskrun.ExecutionRejected
	var jobFailed *taskrun.JobFailed
	var pollErr *taskrun.PollTransportError
	switch {
	case errors.As(err, &rejection):
		return rejection.Message
	case errors.As(err, &jobFailed):
		if jobFailed.Message == "" {
			return "task reported failure without a message"
		}
		return jobFailed.Message
	case errors.As(err, &pollErr):
		return pollErr.Message()
	default:
		return err.Error()
	}
}

// Region is the display content for one key.
type Region struct {
	Blocks []Block
}

// Empty reports whether the region has never been written.
func (r Region) Empty() bool { return len(r.Blocks) == 0 }

// Last returns the most recent block.
func (r Region) Last() (Block, bool) {
	if len(r.Blocks) == 0 {
		return Block{}, false
	}
	return r.Blocks[len(r.Blocks)-1], true
}

// Board holds every key's region. It implements taskrun.Observer and
// is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	regions map[taskrun.Key]Region
	version uint64
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{regions: make(map[taskrun.Key]Region)}
}

// Observe applies event to its key's region: poll errors append, every
// other event replaces.
func (b *Board) Observe(event taskrun.Event) {
	block := BlockFromEvent(event)

	b.mu.Lock()
	defer b.mu.Unlock()
	region := b.regions[event.Key]
	if event.Kind.Appends() {
		region.Blocks = append(slices.Clip(region.Blocks), block)
	} else {
		region.Blocks = []Block{block}
	}
	b.regions[event.Key] = region
	b.version++
}

// Region returns a copy of key's region.
func (b *Board) Region(key taskrun.Key) Region {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Region{Blocks: slices.Clone(b.regions[key].Blocks)}
}

// Regions returns a snapshot of every region.
func (b *Board) Regions() map[taskrun.Key]Region {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make(map[taskrun.Key]Region, len(b.regions))
	for key, region := range b.regions {
		snapshot[key] = Region{Blocks: slices.Clone(region.Blocks)}
	}
	return snapshot
}

// Keys returns the keys with content, in no particular order.
func (b *Board) Keys() []taskrun.Key {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Collect(maps.Keys(b.regions))
}

// Version increases on every change.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Reset clears every region.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regions = make(map[taskrun.Key]Region)
	b.version++
}
