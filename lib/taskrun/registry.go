// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskrun

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taskdesk/taskdesk/lib/clock"
	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// DefaultPollInterval is the delay between a status query resolving
// and the next one being sent.
const DefaultPollInterval = 2 * time.Second

// StatusSource queries task status. *taskapi.Session satisfies it.
type StatusSource interface {
	TaskStatus(ctx context.Context, taskID string) (*taskapi.TaskStatus, error)
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Source answers status queries. Required.
	Source StatusSource

	// Clock schedules polls. Nil means clock.Real().
	Clock clock.Clock

	// Interval is the delay before each status query. Zero means
	// DefaultPollInterval.
	Interval time.Duration

	// Observer receives lifecycle events. Nil discards them.
	Observer Observer

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Registry owns the live poll handle and the control state of every
// key. It is safe for concurrent use.
type Registry struct {
	source   StatusSource
	clock    clock.Clock
	interval time.Duration
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	handles  map[Key]*handle
	controls map[Key]*control

	// lifetime is cancelled by CancelAll to abort in-flight
	// submissions, then replaced.
	lifetime    context.Context
	endLifetime context.CancelFunc
}

// handle is one live poll.
type handle struct {
	key    Key
	taskID string
	timer  *clock.Timer
	ctx    context.Context
	cancel context.CancelFunc

	queries int
}

// control is the activation state of one key.
type control struct {
	// generation counts submissions; only the latest may start a poll.
	generation uint64
	submitting bool
	disabled   bool
}

// ticket identifies one submission while its request is outstanding.
type ticket struct {
	key        Key
	control    *control
	generation uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("taskrun: Source is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Interval < 0 {
		return nil, fmt.Errorf("taskrun: Interval must not be negative, got %s", config.Interval)
	}
	if config.Interval == 0 {
		config.Interval = DefaultPollInterval
	}
	if config.Observer == nil {
		config.Observer = discardObserver{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	lifetime, endLifetime := context.WithCancel(context.Background())
	return &Registry{
		source:      config.Source,
		clock:       config.Clock,
		interval:    config.Interval,
		observer:    config.Observer,
		logger:      config.Logger,
		handles:     make(map[Key]*handle),
		controls:    make(map[Key]*control),
		lifetime:    lifetime,
		endLifetime: endLifetime,
	}, nil
}

// Interval returns the poll interval.
func (r *Registry) Interval() time.Duration { return r.interval }

// Start begins polling taskID for key, cancelling any live handle for
// the key first. The first status query is sent after one interval.
func (r *Registry) Start(key Key, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startLocked(key, taskID, "")
}

// startLocked installs a new handle for key and emits EventSubmitted.
// Caller holds r.mu.
func (r *Registry) startLocked(key Key, taskID, message string) {
	if previous, ok := r.handles[key]; ok {
		r.logger.Info("superseding poll",
			"key", key.String(),
			"previous_task_id", previous.taskID,
			"task_id", taskID,
		)
		r.stopLocked(previous)
	}

	c, ok := r.controls[key]
	if !ok {
		c = &control{}
		r.controls[key] = c
	}
	c.disabled = true

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{key: key, taskID: taskID, ctx: ctx, cancel: cancel}
	r.handles[key] = h
	h.timer = r.clock.AfterFunc(r.interval, func() { r.poll(h) })

	r.logger.Debug("poll started", "key", key.String(), "task_id", taskID, "interval", r.interval)
	r.emitLocked(Event{Kind: EventSubmitted, Key: key, TaskID: taskID, Message: message})
}

// poll runs one status query for h and applies its result if h is
// still live.
func (r *Registry) poll(h *handle) {
	r.mu.Lock()
	if r.handles[h.key] != h {
		r.mu.Unlock()
		return
	}
	h.timer = nil
	h.queries++
	r.mu.Unlock()

	status, err := r.source.TaskStatus(h.ctx, h.taskID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[h.key] != h {
		r.logger.Debug("discarding result from superseded poll", "key", h.key.String(), "task_id", h.taskID)
		return
	}

	if err != nil {
		r.removeLocked(h)
		r.logger.Warn("status query failed, polling stopped",
			"key", h.key.String(),
			"task_id", h.taskID,
			"error", err,
		)
		r.emitLocked(Event{
			Kind:   EventPollError,
			Key:    h.key,
			TaskID: h.taskID,
			Err:    &PollTransportError{Key: h.key, TaskID: h.taskID, Err: err},
		})
		return
	}

	switch status.Status {
	case taskapi.StatusSuccess:
		r.removeLocked(h)
		r.logger.Info("task succeeded", "key", h.key.String(), "task_id", h.taskID, "queries", h.queries)
		r.emitLocked(Event{
			Kind:   EventSucceeded,
			Key:    h.key,
			TaskID: h.taskID,
			Status: status.Status,
			Result: status.Result,
		})
	case taskapi.StatusFailed:
		r.removeLocked(h)
		r.logger.Info("task failed", "key", h.key.String(), "task_id", h.taskID, "error", status.Error)
		r.emitLocked(Event{
			Kind:   EventFailed,
			Key:    h.key,
			TaskID: h.taskID,
			Status: status.Status,
			Err:    &JobFailed{Key: h.key, TaskID: h.taskID, Message: status.Error},
		})
	default:
		r.emitLocked(Event{
			Kind:   EventRunning,
			Key:    h.key,
			TaskID: h.taskID,
			Status: status.Status,
			Result: status.Result,
		})
		h.timer = r.clock.AfterFunc(r.interval, func() { r.poll(h) })
	}
}

// stopLocked cancels h's timer and in-flight query and removes it.
// The key's control is left as is. Caller holds r.mu.
func (r *Registry) stopLocked(h *handle) {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.cancel()
	if r.handles[h.key] == h {
		delete(r.handles, h.key)
	}
}

// removeLocked ends h's lifecycle: the handle is stopped and the
// key's control re-enabled unless a newer submission is pending.
// Caller holds r.mu.
func (r *Registry) removeLocked(h *handle) {
	r.stopLocked(h)
	if c, ok := r.controls[h.key]; ok && !c.submitting {
		c.disabled = false
		delete(r.controls, h.key)
	}
}

// CancelAll stops every live poll across all keys, aborts in-flight
// status queries and submissions, and re-enables every control. No
// event is emitted. After it returns, no previously active poll or
// submission issues another request or emits another event.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.handles)
	for _, h := range r.handles {
		r.stopLocked(h)
	}
	r.handles = make(map[Key]*handle)
	r.controls = make(map[Key]*control)

	r.endLifetime()
	r.lifetime, r.endLifetime = context.WithCancel(context.Background())

	if count > 0 {
		r.logger.Info("cancelled all polls", "count", count)
	}
}

// Active returns the task ID being polled for key.
func (r *Registry) Active(key Key) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[key]
	if !ok {
		return "", false
	}
	return h.taskID, true
}

// ActiveCount returns the number of live poll handles.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Busy reports whether key's control is disabled. A control is
// disabled from submission until the execution is rejected or its poll
// ends.
func (r *Registry) Busy(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controls[key]
	return ok && c.disabled
}

// reserve disables key's control for a new submission and returns its
// ticket together with a context that CancelAll aborts.
func (r *Registry) reserve(ctx context.Context, key Key) (ticket, context.Context, context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[key]
	if !ok {
		c = &control{}
		r.controls[key] = c
	}
	c.generation++
	c.submitting = true
	c.disabled = true

	submitCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.lifetime, cancel)
	release := func() {
		stop()
		cancel()
	}

	r.emitLocked(Event{Kind: EventSubmitting, Key: key})
	return ticket{key: key, control: c, generation: c.generation}, submitCtx, release
}

// currentLocked reports whether t is still the latest submission for
// its key. Caller holds r.mu.
func (r *Registry) currentLocked(t ticket) bool {
	c, ok := r.controls[t.key]
	return ok && c == t.control && c.generation == t.generation
}

// admit starts polling for a successful submission. It reports false
// if the submission was overtaken, in which case nothing changes.
func (r *Registry) admit(t ticket, taskID, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		return false
	}
	t.control.submitting = false
	r.startLocked(t.key, taskID, message)
	return true
}

// refuse records a failed submission. It reports false if the
// submission was overtaken, in which case nothing changes.
func (r *Registry) refuse(t ticket, rejection *ExecutionRejected) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		return false
	}
	t.control.submitting = false
	t.control.disabled = false
	if _, polling := r.handles[t.key]; !polling {
		delete(r.controls, t.key)
	}
	r.emitLocked(Event{Kind: EventRejected, Key: t.key, Err: rejection})
	return true
}

// emitLocked stamps and delivers event. Caller holds r.mu.
func (r *Registry) emitLocked(event Event) {
	event.Time = r.clock.Now()
	r.observer.Observe(event)
}
