// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/deskui"
	"github.com/taskdesk/taskdesk/lib/taskrun"
	"github.com/taskdesk/taskdesk/lib/view"
)

type uiParams struct {
	Config configFlags
}

func uiCommand(streams Streams) *cli.Command {
	var params uiParams

	return &cli.Command{
		Name:    "ui",
		Summary: "Open the interactive desk",
		Description: `Open the interactive desk in the terminal.

Sign in (or resume the saved session), switch between the modules you
may use, and press enter on a script to execute it. Each script shows
the live status of its latest task. Logs go to log.file from the
config, since the desk owns the terminal.

Keys: ←/→ or 1-9 switch modules, ↑/↓ select, enter executes,
/ filters, ctrl+l logs out, q quits.`,
		Usage:  "taskdesk ui [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if !cli.IsTerminal(streams.Out) {
				return cli.Validation("the interactive desk needs a terminal").
					WithHint("Use 'taskdesk modules' and 'taskdesk run' in scripts.")
			}

			board := view.NewBoard()
			notifier := deskui.NewNotifier()
			a, err := openApp(&params.Config, streams, appOptions{
				Observer:    taskrun.Observers{board, notifier},
				Interactive: true,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			config := deskui.Config{
				Desk:     a.desk,
				Board:    board,
				Notifier: notifier,
				Context:  ctx,
			}
			if watcher, err := a.desk.Store().Watch(); err != nil {
				a.logger.Warn("not watching the session file", "error", err)
			} else {
				defer watcher.Close()
				config.SessionRemoved = watcher.Removed()
			}
			program := tea.NewProgram(deskui.NewModel(config), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(streams.Out))
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return cli.Internal("running desk: %w", err)
			}
			a.logger.Info("desk closed")
			return nil
		},
	}
}
