// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/journal"
	"github.com/taskdesk/taskdesk/lib/taskrun"
	"github.com/taskdesk/taskdesk/lib/view"
)

type runParams struct {
	cli.JSONOutput
	Config     configFlags
	ParamsFile string   `flag:"params" desc:"JSON or JSONC file holding the script parameters object"`
	Param      []string `flag:"param,p" desc:"script parameter key=value, repeatable; values that parse as JSON are sent as JSON" array:"true"`
	NoWait     bool     `flag:"no-wait" desc:"print the task ID once accepted instead of following the task"`
}

type submittedOutput struct {
	Module string `json:"module"`
	Script string `json:"script"`
	TaskID string `json:"task_id"`
}

func runCommand(streams Streams) *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Execute a script and follow its task",
		Description: `Execute a script and follow the resulting task until it finishes.

Each status change is printed as it is observed. The command exits 0
when the task succeeds and 1 when the platform rejects the request,
the task fails, or a status query fails. Polling is never retried.

Parameters come from --params (a JSON object, comments and trailing
commas allowed) and --param key=value pairs, which override the file.`,
		Usage: "taskdesk run <module> <script> [flags]",
		Examples: []cli.Example{
			{Description: "Run a script with no parameters", Command: "taskdesk run network ping"},
			{Description: "Pass parameters", Command: "taskdesk run network ping -p host=example.com -p count=3"},
			{Description: "Start a task and check on it later", Command: "taskdesk run backup full --no-wait"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return cli.Validation("module and script are required\n\nUsage: taskdesk run <module> <script> [flags]")
			}
			parameters, err := parseParameters(params.ParamsFile, params.Param)
			if err != nil {
				return err
			}

			queue := newEventQueue()
			a, err := openApp(&params.Config, streams, appOptions{Observer: queue})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			key := taskrun.Key{ModuleID: args[0], ScriptID: args[1]}
			if err := a.checkScript(key); err != nil {
				return err
			}

			printer := newBlockPrinter(streams.Out, params.OutputJSON)
			taskID, err := a.desk.Execute(ctx, key, parameters)
			if err != nil && !taskrun.IsRejected(err) {
				return cli.Internal("executing %s: %w", key, err)
			}
			if err == nil && params.NoWait {
				printer.printAll(queue.drain(), key)
				if done, err := params.EmitJSON(streams.Out, submittedOutput{Module: key.ModuleID, Script: key.ScriptID, TaskID: taskID}); done {
					return err
				}
				return nil
			}

			final, err := follow(ctx, queue, key, printer)
			if err != nil {
				a.desk.Controller().CancelAll()
				return cli.Transient("stopped following task %s: %w", taskID, err)
			}
			if params.OutputJSON {
				entry, _ := journal.EntryFromEvent(final, view.ErrorText)
				if err := cli.WriteJSON(streams.Out, entry); err != nil {
					return err
				}
			}
			if final.Kind != taskrun.EventSucceeded {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// checkScript distinguishes an unknown script from a forbidden one.
func (a *app) checkScript(key taskrun.Key) error {
	if _, _, ok := a.desk.Lookup(key.ModuleID, key.ScriptID); ok {
		return nil
	}
	for _, module := range a.desk.Modules() {
		if module.ID != key.ModuleID {
			continue
		}
		if !a.desk.Store().Permitted(module.ID) {
			return cli.Forbidden("no access to module %s", module.ID)
		}
		return cli.NotFound("module %s has no script %s", module.ID, key.ScriptID).
			WithHint("Run 'taskdesk modules' to list the scripts you may run.")
	}
	return cli.NotFound("unknown module %s", key.ModuleID).
		WithHint("Run 'taskdesk modules' to list the modules you may use.")
}

// follow prints key's events until a terminal one arrives or ctx ends.
func follow(ctx context.Context, queue *eventQueue, key taskrun.Key, printer *blockPrinter) (taskrun.Event, error) {
	for {
		for _, event := range queue.drain() {
			if event.Key != key {
				continue
			}
			printer.print(event)
			if event.Kind.Terminal() {
				return event, nil
			}
		}
		select {
		case <-queue.wake:
		case <-ctx.Done():
			return taskrun.Event{}, ctx.Err()
		}
	}
}

// parseParameters merges the parameter file with key=value pairs.
func parseParameters(path string, pairs []string) (map[string]any, error) {
	parameters := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cli.Validation("reading --params: %w", err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &parameters); err != nil {
			return nil, cli.Validation("--params %s must hold a JSON object: %w", path, err)
		}
	}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, cli.Validation("--param %q must be key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			decoded = value
		}
		parameters[name] = decoded
	}
	return parameters, nil
}

// eventQueue collects task events for the command's main goroutine.
// Observe never blocks.
type eventQueue struct {
	mu     sync.Mutex
	events []taskrun.Event
	wake   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) Observe(event taskrun.Event) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []taskrun.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

// blockPrinter writes each event as its rendered block. It is silent
// in JSON mode, where only the final record is written.
type blockPrinter struct {
	out    io.Writer
	styles *view.Styles
	width  int
	quiet  bool
}

func newBlockPrinter(out io.Writer, quiet bool) *blockPrinter {
	styles := view.PlainStyles()
	if cli.IsTerminal(out) {
		styles = view.DefaultStyles()
	}
	return &blockPrinter{out: out, styles: styles, width: cli.TerminalWidth(out, 0), quiet: quiet}
}

func (p *blockPrinter) print(event taskrun.Event) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, view.RenderBlock(view.BlockFromEvent(event), p.styles, p.width))
}

func (p *blockPrinter) printAll(events []taskrun.Event, key taskrun.Key) {
	for _, event := range events {
		if event.Key == key {
			p.print(event)
		}
	}
}
