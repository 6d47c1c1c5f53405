// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestToolError_ErrorWithoutHint(t *testing.T) {
	err := Validation("module and script are required")
	if err.Error() != "module and script are required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestToolError_ErrorWithHint(t *testing.T) {
	err := Forbidden("not logged in").WithHint("Run 'taskdesk login <username>' first.")
	want := "not logged in\n\nRun 'taskdesk login <username>' first."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Category != CategoryForbidden {
		t.Errorf("Category = %q", err.Category)
	}
}

func TestToolError_UnwrapsThroughWrapping(t *testing.T) {
	inner := Internal("reading journal: %w", fs.ErrPermission)
	wrapped := fmt.Errorf("history: %w", inner)

	var toolErr *ToolError
	if !errors.As(wrapped, &toolErr) || toolErr.Category != CategoryInternal {
		t.Fatalf("errors.As failed on %v", wrapped)
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Error("cause lost through ToolError")
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 2 {
		t.Errorf("ExitError does not report its code")
	}
}
