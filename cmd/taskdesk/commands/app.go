// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/clock"
	"github.com/taskdesk/taskdesk/lib/config"
	"github.com/taskdesk/taskdesk/lib/desk"
	"github.com/taskdesk/taskdesk/lib/journal"
	"github.com/taskdesk/taskdesk/lib/session"
	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
	"github.com/taskdesk/taskdesk/lib/version"
	"github.com/taskdesk/taskdesk/lib/view"
)

// Streams are the process's standard streams. Tests substitute
// buffers.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// configFlags are shared by every command that talks to the platform.
type configFlags struct {
	Path   string
	Server string
}

func (f *configFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Path, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.Server, "server", "", "platform API URL, overriding server.base_url")
}

// load reads the configuration named by --config, or by the
// environment, and applies --server.
func (f *configFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.Path != "" {
		cfg, err = config.LoadFile(f.Path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if f.Server != "" {
		cfg.Server.BaseURL = f.Server
		if err := cfg.Validate(); err != nil {
			return nil, cli.Validation("--server: %w", err)
		}
	}
	return cfg, nil
}

// appOptions tune openApp for one command.
type appOptions struct {
	// Observer receives task events ahead of the journal.
	Observer taskrun.Observer

	// Interactive sends logs to log.file (or nowhere) instead of
	// stderr, which the terminal UI owns.
	Interactive bool
}

// app is the wiring of one command invocation: configuration, logger,
// journal and the desk.
type app struct {
	config   *config.Config
	logger   *slog.Logger
	desk     *desk.Desk
	journal  *journal.Journal
	recorder *journal.Recorder

	closers []func()
}

func openApp(flags *configFlags, streams Streams, options appOptions) (*app, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, err
	}
	a := &app{config: cfg}

	if err := a.openLogger(streams, options.Interactive); err != nil {
		return nil, err
	}

	observers := taskrun.Observers{options.Observer}
	if !cfg.Journal.Disabled {
		a.journal, err = journal.Open(cfg.Journal.File)
		if err != nil {
			a.Close()
			return nil, cli.Internal("opening journal: %w", err)
		}
		a.recorder = journal.NewRecorder(a.journal, a.logger, view.ErrorText)
		a.closers = append(a.closers, a.recorder.Close)
		observers = append(observers, a.recorder)
	}

	client, err := taskapi.NewClient(taskapi.ClientConfig{
		BaseURL:   cfg.Server.BaseURL,
		Timeout:   cfg.Server.RequestTimeout.Std(),
		UserAgent: version.UserAgent(),
		Logger:    a.logger,
	})
	if err != nil {
		a.Close()
		return nil, cli.Validation("%w", err)
	}
	store, err := session.NewStore(session.Config{
		Path:    cfg.Session.File,
		BaseURL: cfg.Server.BaseURL,
		Logger:  a.logger,
	})
	if err != nil {
		a.Close()
		return nil, cli.Validation("%w", err)
	}

	a.desk, err = desk.New(desk.Config{
		Client:       client,
		Store:        store,
		Clock:        clock.Real(),
		PollInterval: cfg.Poll.Interval.Std(),
		Observer:     observers,
		Logger:       a.logger,
	})
	if err != nil {
		a.Close()
		return nil, cli.Internal("%w", err)
	}
	// Polls stop before the journal flushes.
	a.closers = append(a.closers, a.desk.Controller().CancelAll)
	return a, nil
}

func (a *app) openLogger(streams Streams, interactive bool) error {
	level, err := a.config.LogLevel()
	if err != nil {
		return cli.Validation("%w", err)
	}
	if !interactive {
		a.logger = cli.NewCommandLogger(streams.Err, level)
		return nil
	}
	if a.config.Log.File == "" {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.config.Log.File), 0o700); err != nil {
		return cli.Internal("creating log directory: %w", err)
	}
	file, err := os.OpenFile(a.config.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return cli.Internal("opening log file: %w", err)
	}
	a.closers = append(a.closers, func() { file.Close() })
	a.logger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	return nil
}

// Close stops polling, flushes the journal and closes the log file.
func (a *app) Close() {
	for index := len(a.closers) - 1; index >= 0; index-- {
		a.closers[index]()
	}
	a.closers = nil
}

// requireSession restores the persisted session, failing when there
// is none or it no longer verifies.
func (a *app) requireSession(ctx context.Context) error {
	found, err := a.desk.Startup(ctx)
	if err != nil {
		return sessionError(err)
	}
	if !found {
		return cli.Forbidden("not logged in to %s", a.config.Server.BaseURL).
			WithHint("Run 'taskdesk login <username>' first.")
	}
	return nil
}

// sessionError categorizes a desk authentication failure.
func sessionError(err error) error {
	var failure *desk.AuthFailure
	if !errors.As(err, &failure) {
		return cli.Internal("%w", err)
	}
	switch {
	case failure.Stage == desk.StageSessionFile:
		return (&cli.ToolError{Category: cli.CategoryInternal, Err: fmt.Errorf("unreadable session file: %w", failure.Err)}).
			WithHint("The file was removed. Run 'taskdesk login <username>' again.")
	case failure.Stage == desk.StageLogin:
		return &cli.ToolError{Category: cli.CategoryForbidden, Err: fmt.Errorf("login failed: %s", failure.Message)}
	case taskapi.IsUnauthorized(err):
		return (&cli.ToolError{Category: cli.CategoryForbidden, Err: fmt.Errorf("session rejected: %s", failure.Message)}).
			WithHint("The saved session was cleared. Run 'taskdesk login <username>' again.")
	case isTransport(err):
		return &cli.ToolError{Category: cli.CategoryTransient, Err: err}
	}
	return &cli.ToolError{Category: cli.CategoryInternal, Err: err}
}

// isTransport reports whether err never got an HTTP response.
func isTransport(err error) bool {
	var apiErr *taskapi.APIError
	return !errors.As(err, &apiErr)
}
