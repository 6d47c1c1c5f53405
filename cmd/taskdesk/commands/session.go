// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskdesk/taskdesk/cmd/taskdesk/cli"
)

type loginParams struct {
	Config       configFlags
	PasswordFile string `flag:"password-file" desc:"read the password from this file, or - for stdin (default: prompt)"`
}

func loginCommand(streams Streams) *cli.Command {
	var params loginParams

	return &cli.Command{
		Name:    "login",
		Summary: "Authenticate and save the session",
		Description: `Log in to the task platform and save the access token locally.

Later commands reuse the saved session until "taskdesk logout" or until
the platform rejects the token. The session file is written with mode
0600 and is tied to the server it was issued by.`,
		Usage: "taskdesk login <username> [flags]",
		Examples: []cli.Example{
			{Description: "Log in interactively", Command: "taskdesk login alice"},
			{Description: "Log in non-interactively", Command: "taskdesk login alice --password-file ~/.taskdesk-password"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one username is required\n\nUsage: taskdesk login <username> [flags]")
			}
			username := args[0]

			password, err := cli.ReadPassword(params.PasswordFile, streams.Err)
			if err != nil {
				return err
			}
			defer password.Close()

			a, err := openApp(&params.Config, streams, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.desk.Login(ctx, username, password); err != nil {
				return sessionError(err)
			}

			modules := a.desk.VisibleModules()
			names := make([]string, 0, len(modules))
			for _, module := range modules {
				names = append(names, module.ID)
			}
			fmt.Fprintf(streams.Out, "Logged in as %s\n", a.desk.User().Username)
			fmt.Fprintf(streams.Out, "Modules: %s\n", strings.Join(names, ", "))
			fmt.Fprintf(streams.Out, "Session saved to %s\n", a.desk.Store().Path())
			return nil
		},
	}
}

type logoutParams struct {
	Config configFlags
}

func logoutCommand(streams Streams) *cli.Command {
	var params logoutParams

	return &cli.Command{
		Name:    "logout",
		Summary: "Forget the saved session",
		Usage:   "taskdesk logout [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			a, err := openApp(&params.Config, streams, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.desk.Store().Load()
			if err != nil {
				a.logger.Warn("discarding unreadable session file", "error", err)
			}
			if err := a.desk.Logout(); err != nil {
				return cli.Internal("%w", err)
			}
			if !found {
				fmt.Fprintln(streams.Out, "Not logged in")
				return nil
			}
			fmt.Fprintln(streams.Out, "Logged out")
			return nil
		},
	}
}

type whoamiParams struct {
	cli.JSONOutput
	Config configFlags
	Verify bool `flag:"verify" desc:"verify the session against the platform"`
}

type whoamiOutput struct {
	Username    string    `json:"username,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	Server      string    `json:"server"`
	SessionFile string    `json:"session_file"`
	Fingerprint string    `json:"fingerprint"`
	SavedAt     time.Time `json:"saved_at"`
	Verified    bool      `json:"verified"`
}

func whoamiCommand(streams Streams) *cli.Command {
	var params whoamiParams

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the saved session",
		Description: `Show the saved session: server, session file and token fingerprint.

With --verify the token is checked against the platform, which also
reports the username and module permissions. Without it no network
request is made.`,
		Usage:  "taskdesk whoami [flags]",
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

			store := a.desk.Store()
			if params.Verify {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
			} else {
				found, err := store.Load()
				if err != nil {
					return cli.Internal("reading session: %w", err)
				}
				if !found {
					return cli.Forbidden("not logged in to %s", a.config.Server.BaseURL).
						WithHint("Run 'taskdesk login <username>' first.")
				}
			}

			output := whoamiOutput{
				Server:      a.config.Server.BaseURL,
				SessionFile: store.Path(),
				Fingerprint: store.Fingerprint(),
				SavedAt:     store.SavedAt(),
				Verified:    params.Verify,
			}
			if user := store.User(); user != nil {
				output.Username = user.Username
				output.Permissions = user.Permissions
			}
			if done, err := params.EmitJSON(streams.Out, output); done {
				return err
			}

			if output.Username != "" {
				fmt.Fprintf(streams.Out, "User:        %s\n", output.Username)
				fmt.Fprintf(streams.Out, "Permissions: %s\n", strings.Join(output.Permissions, ", "))
			}
			fmt.Fprintf(streams.Out, "Server:      %s\n", output.Server)
			fmt.Fprintf(streams.Out, "Session:     %s\n", output.SessionFile)
			fmt.Fprintf(streams.Out, "Token:       %s\n", output.Fingerprint)
			if !output.SavedAt.IsZero() {
				fmt.Fprintf(streams.Out, "Saved:       %s\n", output.SavedAt.Format(time.RFC3339))
			}
			if output.Verified {
				fmt.Fprintln(streams.Out, "Status:      valid")
			}
			return nil
		},
	}
}
