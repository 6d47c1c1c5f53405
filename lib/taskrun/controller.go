// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdesk/taskdesk/lib/clock"
	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// API is the platform surface the Controller needs. *taskapi.Session
// satisfies it.
type API interface {
	StatusSource
	Execute(ctx context.Context, moduleID, scriptID string, parameters map[string]any) (*taskapi.ExecuteResponse, error)
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// API submits executions and answers status queries. Required.
	API API

	// Clock schedules polls. Nil means clock.Real().
	Clock clock.Clock

	// PollInterval is the delay before each status query. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// Observer receives lifecycle events. Nil discards them.
	Observer Observer

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Controller submits executions and hands accepted tasks to its
// Registry.
type Controller struct {
	api      API
	registry *Registry
	logger   *slog.Logger
}

// NewController creates a Controller and its Registry.
func NewController(config ControllerConfig) (*Controller, error) {
	if config.API == nil {
		return nil, fmt.Errorf("taskrun: API is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	registry, err := NewRegistry(RegistryConfig{
		Source:   config.API,
		Clock:    config.Clock,
		Interval: config.PollInterval,
		Observer: config.Observer,
		Logger:   config.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Controller{api: config.API, registry: registry, logger: config.Logger}, nil
}

// Registry returns the poll registry.
func (c *Controller) Registry() *Registry { return c.registry }

// Busy reports whether key's control is disabled.
func (c *Controller) Busy(key Key) bool { return c.registry.Busy(key) }

// CancelAll stops every poll and outstanding submission.
func (c *Controller) CancelAll() { c.registry.CancelAll() }

// Submit executes the script named by key and starts polling the
// resulting task. It is Reserve followed by Send.
func (c *Controller) Submit(ctx context.Context, key Key, parameters map[string]any) (string, error) {
	return c.Reserve(ctx, key).Send(parameters)
}

// Submission is an execution whose control is already disabled but
// whose request has not been sent. Every Submission must be sent
// exactly once.
type Submission struct {
	controller *Controller
	key        Key
	ticket     ticket
	ctx        context.Context
	release    context.CancelFunc
}

// Reserve disables key's control and emits EventSubmitting without
// blocking. Callers on an event loop reserve synchronously and Send
// from a goroutine, so a second activation handled before the request
// resolves already sees the key as busy.
func (c *Controller) Reserve(ctx context.Context, key Key) *Submission {
	t, submitCtx, release := c.registry.reserve(ctx, key)
	return &Submission{controller: c, key: key, ticket: t, ctx: submitCtx, release: release}
}

// Key returns the key the submission is for.
func (s *Submission) Key() Key { return s.key }

// Send issues the execute request.
//
// On success the task ID is returned and polling has already started.
// On failure the error is an *ExecutionRejected, the control is enabled
// again and EventRejected emitted. Nothing is retried.
//
// If a newer submission for the same key, or a CancelAll, happened
// after Reserve, Send changes no state when the request resolves and
// returns ErrSuperseded (wrapped, with the task ID if the platform
// accepted it).
func (s *Submission) Send(parameters map[string]any) (string, error) {
	defer s.release()
	c, key, t := s.controller, s.key, s.ticket

	c.logger.Debug("submitting execution", "key", key.String())
	response, err := c.api.Execute(s.ctx, key.ModuleID, key.ScriptID, parameters)
	if err != nil {
		rejection := newExecutionRejected(key, err)
		if !c.registry.refuse(t, rejection) {
			c.logger.Debug("discarding overtaken rejection", "key", key.String(), "error", err)
			return "", fmt.Errorf("%w: %w", ErrSuperseded, rejection)
		}
		c.logger.Warn("execution rejected", "key", key.String(), "error", err)
		return "", rejection
	}

	if !c.registry.admit(t, response.TaskID, response.Message) {
		c.logger.Info("newer submission overtook this one, not polling",
			"key", key.String(),
			"task_id", response.TaskID,
		)
		return response.TaskID, fmt.Errorf("task %s: %w", response.TaskID, ErrSuperseded)
	}
	c.logger.Info("execution submitted", "key", key.String(), "task_id", response.TaskID)
	return response.TaskID, nil
}

// IsRejected reports whether err is an *ExecutionRejected that changed
// state (not one discarded as superseded).
func IsRejected(err error) bool {
	var rejection *ExecutionRejected
	return errors.As(err, &rejection) && !errors.Is(err, ErrSuperseded)
}
