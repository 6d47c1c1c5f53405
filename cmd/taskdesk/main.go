// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Command taskdesk is a client for a task execution platform.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own outcome (like a failed "run")
		// return an error carrying only the exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.Root(commands.Streams{Out: os.Stdout, Err: os.Stderr})
	return root.Execute(ctx, os.Args[1:])
}
