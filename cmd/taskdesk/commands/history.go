// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
)

type historyParams struct {
	cli.JSONOutput
	Config configFlags
	Limit  int `flag:"limit,n" desc:"entries to show, newest first (default journal.limit)"`
}

func historyCommand(streams Streams) *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "Show recently finished tasks",
		Description: `Show tasks this machine followed to completion, newest first.

Every task that succeeded, failed, lost its status query or was
rejected is journaled locally, by "run" and by the interactive desk.
Nothing is fetched from the platform.`,
		Usage:  "taskdesk history [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Limit < 0 {
				return cli.Validation("--limit must not be negative")
			}
			a, err := openApp(&params.Config, streams, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.journal == nil {
				return cli.Validation("the journal is disabled (journal.disabled in the config)")
			}

			limit := params.Limit
			if limit == 0 {
				limit = a.config.Journal.Limit
			}
			entries, err := a.journal.List(limit)
			if err != nil {
				return cli.Internal("reading journal: %w", err)
			}
			if done, err := params.EmitJSON(streams.Out, entries); done {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(streams.Out, "No finished tasks recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(streams.Out, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSCRIPT\tTASK\tOUTCOME\tDETAIL")
			for _, entry := range entries {
				detail := entry.Error
				if detail == "" {
					detail = entry.Status
				}
				fmt.Fprintf(tw, "%s\t%s/%s\t%s\t%s\t%s\n",
					entry.RecordedAt.Local().Format(time.DateTime),
					entry.Module, entry.Script,
					orDash(entry.TaskID),
					entry.Outcome,
					detail,
				)
			}
			return tw.Flush()
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
