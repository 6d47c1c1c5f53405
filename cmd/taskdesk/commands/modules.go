// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/view"
)

type modulesParams struct {
	cli.JSONOutput
	Config configFlags
	Filter string `flag:"filter,f" desc:"fuzzy-filter scripts by name, ID or description"`
}

func modulesCommand(streams Streams) *cli.Command {
	var params modulesParams

	return &cli.Command{
		Name:    "modules",
		Summary: "List the modules and scripts you may run",
		Description: `List the modules your account may use and their scripts.

Modules outside your permissions are not shown. With --filter, only
scripts matching the fuzzy query are listed, best match first.`,
		Usage: "taskdesk modules [flags]",
		Examples: []cli.Example{
			{Description: "Find backup scripts", Command: "taskdesk modules --filter bkp"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			a, err := openApp(&params.Config, streams, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			modules := filterModules(a.desk.VisibleModules(), params.Filter)
			if done, err := params.EmitJSON(streams.Out, modules); done {
				return err
			}
			if len(modules) == 0 {
				fmt.Fprintln(streams.Out, "No modules available.")
				return nil
			}

			styles := view.PlainStyles()
			if cli.IsTerminal(streams.Out) {
				styles = view.DefaultStyles()
			}
			width := cli.TerminalWidth(streams.Out, 80)
			for index, module := range modules {
				if index > 0 {
					fmt.Fprintln(streams.Out)
				}
				fmt.Fprintf(streams.Out, "%s  %s\n", module.ID, module.Name)
				if description := view.RenderMarkdown(module.Description, styles, width-2); description != "" {
					fmt.Fprintln(streams.Out, indentLines(description, "  "))
				}
				tw := tabwriter.NewWriter(streams.Out, 2, 0, 3, ' ', 0)
				for _, script := range module.Scripts {
					summary, _, _ := strings.Cut(strings.TrimSpace(script.Description), "\n")
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", script.ID, script.Name, summary)
				}
				tw.Flush()
			}
			return nil
		},
	}
}

// filterModules keeps, per module, the scripts matching query, and
// drops modules left without any. An empty query keeps everything.
func filterModules(modules []taskapi.Module, query string) []taskapi.Module {
	if query == "" {
		return modules
	}
	var filtered []taskapi.Module
	for _, module := range modules {
		matches := view.FilterScripts(module.Scripts, query)
		if len(matches) == 0 {
			continue
		}
		module.Scripts = make([]taskapi.Script, 0, len(matches))
		for _, match := range matches {
			module.Scripts = append(module.Scripts, match.Script)
		}
		filtered = append(filtered, module)
	}
	return filtered
}

func indentLines(content, prefix string) string {
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		if line != "" {
			lines[index] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
