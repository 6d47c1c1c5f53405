// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the taskdesk command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/version"
)

// Root builds the complete command tree writing to streams.
func Root(streams Streams) *cli.Command {
	return &cli.Command{
		Name: "taskdesk",
		Description: `taskdesk: run scripts on a task execution platform.

Log in once, then browse the modules your account may use, execute
their scripts and follow each task until it succeeds or fails. Run
"taskdesk ui" for the interactive desk.`,
		Output: streams.Err,
		Subcommands: []*cli.Command{
			loginCommand(streams),
			logoutCommand(streams),
			whoamiCommand(streams),
			modulesCommand(streams),
			runCommand(streams),
			statusCommand(streams),
			historyCommand(streams),
			uiCommand(streams),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(streams.Out, "taskdesk %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
