// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "taskdesk",
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string) error { called = "version"; return nil }},
			{Name: "modules", Run: func(context.Context, []string) error { called = "modules"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"modules"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "modules" {
		t.Errorf("dispatched to %q, want %q", called, "modules")
	}
}

func TestCommand_Execute_ParamsBecomeFlags(t *testing.T) {
	type runParams struct {
		JSONOutput
		ParamsFile string   `flag:"params" desc:"parameter file"`
		Param      []string `flag:"param,p" desc:"parameter" array:"true"`
	}
	var params runParams
	var receivedArgs []string

	command := &Command{
		Name:   "run",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string) error {
			receivedArgs = args
			return nil
		},
	}

	args := []string{"--json", "mod1", "--params", "p.jsonc", "-p", "a=1,2", "scriptA", "--param", "b=x"}
	if err := command.Execute(context.Background(), args); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !params.OutputJSON || params.ParamsFile != "p.jsonc" {
		t.Errorf("params = %+v", params)
	}
	if len(params.Param) != 2 || params.Param[0] != "a=1,2" {
		t.Errorf("Param = %q, want [a=1,2 b=x]", params.Param)
	}
	if strings.Join(receivedArgs, " ") != "mod1 scriptA" {
		t.Errorf("args = %v", receivedArgs)
	}
}

func TestCommand_Execute_UnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name:        "taskdesk",
		Subcommands: []*Command{{Name: "modules", Run: func(context.Context, []string) error { return nil }}},
	}
	err := root.Execute(context.Background(), []string{"modlues"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "modules"`) {
		t.Errorf("error = %v, want a suggestion", err)
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Errorf("error not categorized as validation: %v", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	type params struct {
		Verify bool `flag:"verify" desc:"verify"`
	}
	var p params
	command := &Command{
		Name:   "whoami",
		Params: func() any { return &p },
		Run:    func(context.Context, []string) error { return nil },
	}
	err := command.Execute(context.Background(), []string{"--verfy"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --verify?") {
		t.Errorf("error = %v, want --verify suggestion", err)
	}
}

func TestCommand_Execute_HelpGoesToOutput(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:   "taskdesk",
		Output: &output,
		Subcommands: []*Command{
			{
				Name:     "run",
				Summary:  "Execute a script",
				Usage:    "taskdesk run <module> <script> [flags]",
				Examples: []Example{{Description: "Run a script", Command: "taskdesk run net ping"}},
				Run:      func(context.Context, []string) error { return nil },
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"run", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	help := output.String()
	for _, want := range []string{"Usage:\n  taskdesk run <module> <script> [flags]", "# Run a script", "taskdesk run net ping"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "taskdesk",
		Subcommands: []*Command{{Name: "version", Run: func(context.Context, []string) error { return nil }}},
	}
	if err := root.Execute(context.Background(), nil); err == nil || err.Error() != "subcommand required" {
		t.Errorf("error = %v, want subcommand required", err)
	}
}
