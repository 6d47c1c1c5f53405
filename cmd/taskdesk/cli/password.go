// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/taskdesk/taskdesk/lib/secret"
)

// ReadPassword reads a password from passwordFile, or prompts on the
// terminal when passwordFile is empty. "-" reads one line from stdin.
// The caller closes the returned Buffer.
func ReadPassword(passwordFile string, prompt io.Writer) (*secret.Buffer, error) {
	if passwordFile != "" {
		buffer, err := secret.ReadFromPath(passwordFile)
		if err != nil {
			return nil, Validation("reading password: %w", err)
		}
		return buffer, nil
	}

	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return nil, Validation("no terminal available for the password prompt").
			WithHint("Pass --password-file <path>, or --password-file - to read stdin.")
	}

	fmt.Fprint(prompt, "Password: ")
	passwordBytes, err := term.ReadPassword(stdin)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}

	buffer, err := secret.NewFromBytes(passwordBytes)
	secret.Zero(passwordBytes)
	if err != nil {
		return nil, Internal("storing password: %w", err)
	}
	return buffer, nil
}
