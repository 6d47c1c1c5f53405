// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package desk ties the session store, API client, module catalog and
// execution controller into one object with an explicit lifecycle.
//
// A [Desk] starts logged out. [Desk.Startup] rehydrates a persisted
// credential and verifies it; [Desk.Login] exchanges a username and
// password for one. Both then fetch the user's identity and the module
// catalog. Any failure along the way resets the desk to logged out
// and returns an [*AuthFailure]: a catalog that cannot be loaded is
// treated the same as an invalid session.
//
// [Desk.Logout] cancels every poll and outstanding submission before
// clearing the session, so no request carrying the old credential is
// sent afterwards.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdesk/taskdesk/lib/catalog"
	"github.com/taskdesk/taskdesk/lib/clock"
	"github.com/taskdesk/taskdesk/lib/secret"
	"github.com/taskdesk/taskdesk/lib/session"
	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// AuthStage names the step at which authentication failed.
type AuthStage string

const (
	// StageSessionFile: the persisted session could not be read.
	StageSessionFile AuthStage = "session_file"
	// StageLogin: the platform refused the username and password.
	StageLogin AuthStage = "login"
	// StageVerify: whoami rejected the credential.
	StageVerify AuthStage = "verify"
	// StageCatalog: the module catalog could not be loaded.
	StageCatalog AuthStage = "catalog"
)

// AuthFailure reports that the desk is not (or no longer) logged in.
// The desk has already been reset when it is returned.
type AuthFailure struct {
	Stage AuthStage

	// Message is human-readable: the server's detail when present.
	Message string

	Err error
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("authentication failed (%s): %s", e.Stage, e.Message)
}

func (e *AuthFailure) Unwrap() error { return e.Err }

func newAuthFailure(stage AuthStage, err error) *AuthFailure {
	return &AuthFailure{Stage: stage, Message: taskapi.UserMessage(err), Err: err}
}

// Config configures a Desk.
type Config struct {
	// Client talks to the platform. Required.
	Client *taskapi.Client

	// Store holds the session. Required.
	Store *session.Store

	// Clock schedules polls. Nil means clock.Real().
	Clock clock.Clock

	// PollInterval is the delay before each status query. Zero means
	// taskrun.DefaultPollInterval.
	PollInterval time.Duration

	// Observer receives execution lifecycle events.
	Observer taskrun.Observer

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Desk is the client application state. Its methods are safe for
// concurrent use, but Login, Startup and Logout are expected to be
// called from one place (the UI loop or a CLI command).
type Desk struct {
	client     *taskapi.Client
	store      *session.Store
	api        *taskapi.Session
	catalog    *catalog.Loader
	controller *taskrun.Controller
	logger     *slog.Logger
}

// New creates a logged-out Desk.
func New(config Config) (*Desk, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("desk: Client is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("desk: Store is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := config.Client.Session(config.Store)
	controller, err := taskrun.NewController(taskrun.ControllerConfig{
		API:          api,
		Clock:        config.Clock,
		PollInterval: config.PollInterval,
		Observer:     config.Observer,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Desk{
		client:     config.Client,
		store:      config.Store,
		api:        api,
		catalog:    catalog.NewLoader(api, logger),
		controller: controller,
		logger:     logger,
	}, nil
}

// Startup restores a persisted session. It reports false, with a nil
// error, when there is none. A session that fails verification or
// whose catalog cannot be loaded is cleared and an *AuthFailure
// returned.
func (d *Desk) Startup(ctx context.Context) (bool, error) {
	found, err := d.store.Load()
	if err != nil {
		d.reset()
		return false, newAuthFailure(StageSessionFile, err)
	}
	if !found {
		return false, nil
	}
	if err := d.establish(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Login authenticates with username and password, persists the token
// and loads the user's identity and catalog. Any existing session is
// logged out first. The password Buffer is not closed.
func (d *Desk) Login(ctx context.Context, username string, password *secret.Buffer) error {
	if d.store.HasToken() {
		if err := d.Logout(); err != nil {
			d.logger.Warn("clearing previous session before login", "error", err)
		}
	}

	token, err := d.client.Login(ctx, username, password)
	if err != nil {
		return newAuthFailure(StageLogin, err)
	}
	if err := d.store.SetToken(token); err != nil {
		// The in-memory session still works for this process.
		d.logger.Warn("session not persisted", "path", d.store.Path(), "error", err)
	}
	return d.establish(ctx)
}

// establish verifies the held token and loads the catalog, resetting
// on any failure.
func (d *Desk) establish(ctx context.Context) error {
	user, err := d.api.WhoAmI(ctx)
	if err != nil {
		d.reset()
		return newAuthFailure(StageVerify, err)
	}
	d.store.SetUser(user)

	if _, err := d.catalog.Load(ctx); err != nil {
		d.reset()
		return newAuthFailure(StageCatalog, err)
	}

	d.logger.Info("session established",
		"username", user.Username,
		"fingerprint", d.store.Fingerprint(),
		"visible_modules", len(d.VisibleModules()),
	)
	return nil
}

// Logout cancels all polls and submissions, then clears the session
// (memory and file) and the catalog.
func (d *Desk) Logout() error {
	username := ""
	if user := d.store.User(); user != nil {
		username = user.Username
	}
	err := d.reset()
	if err != nil {
		return fmt.Errorf("desk: logout: %w", err)
	}
	d.logger.Info("logged out", "username", username)
	return nil
}

func (d *Desk) reset() error {
	d.controller.CancelAll()
	err := d.store.Clear()
	d.catalog.Reset()
	return err
}

// Authenticated reports whether a verified session is held.
func (d *Desk) Authenticated() bool {
	return d.store.HasToken() && d.store.User() != nil
}

// User returns the signed-in user, or nil.
func (d *Desk) User() *taskapi.UserInfo { return d.store.User() }

// Modules returns the whole cached catalog.
func (d *Desk) Modules() []taskapi.Module { return d.catalog.Modules() }

// VisibleModules returns the catalog modules the user may use, in
// catalog order.
func (d *Desk) VisibleModules() []taskapi.Module {
	return d.catalog.Visible(d.store.Permitted)
}

// Lookup resolves a (module, script) pair among the visible modules.
func (d *Desk) Lookup(moduleID, scriptID string) (taskapi.Module, taskapi.Script, bool) {
	if !d.store.Permitted(moduleID) {
		return taskapi.Module{}, taskapi.Script{}, false
	}
	return d.catalog.Lookup(moduleID, scriptID)
}

// ErrNotLoggedIn is returned by Execute and Reserve before a session is
// established.
var ErrNotLoggedIn = errors.New("desk: not logged in")

// Execute submits key for execution and starts polling it.
func (d *Desk) Execute(ctx context.Context, key taskrun.Key, parameters map[string]any) (string, error) {
	submission, err := d.Reserve(ctx, key)
	if err != nil {
		return "", err
	}
	return submission.Send(parameters)
}

// Reserve disables key's control without sending anything. See
// taskrun.Controller.Reserve.
func (d *Desk) Reserve(ctx context.Context, key taskrun.Key) (*taskrun.Submission, error) {
	if !d.Authenticated() {
		return nil, ErrNotLoggedIn
	}
	return d.controller.Reserve(ctx, key), nil
}

// Busy reports whether key's control is disabled.
func (d *Desk) Busy(key taskrun.Key) bool { return d.controller.Busy(key) }

// Controller returns the execution controller.
func (d *Desk) Controller() *taskrun.Controller { return d.controller }

// API returns the authenticated API session.
func (d *Desk) API() *taskapi.Session { return d.api }

// Store returns the session store.
func (d *Desk) Store() *session.Store { return d.store }
