// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/view"
)

type statusParams struct {
	cli.JSONOutput
	Config configFlags
}

func statusCommand(streams Streams) *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Query a task's status once",
		Description: `Query the platform once for a task's status and print it.

Use this to check on a task started elsewhere, or one "run --no-wait"
left behind.`,
		Usage:  "taskdesk status <task-id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one task ID is required\n\nUsage: taskdesk status <task-id> [flags]")
			}
			a, err := openApp(&params.Config, streams, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			status, err := a.desk.API().TaskStatus(ctx, args[0])
			if err != nil {
				var apiErr *taskapi.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
					return cli.NotFound("task %s: %s", args[0], apiErr.Message())
				}
				return cli.Transient("querying task %s: %s", args[0], taskapi.UserMessage(err))
			}
			if done, err := params.EmitJSON(streams.Out, status); done {
				return err
			}

			styles := view.PlainStyles()
			if cli.IsTerminal(streams.Out) {
				styles = view.DefaultStyles()
			}
			fmt.Fprintln(streams.Out, view.RenderBlock(view.BlockFromStatus(status), styles, cli.TerminalWidth(streams.Out, 80)))
			return nil
		},
	}
}
