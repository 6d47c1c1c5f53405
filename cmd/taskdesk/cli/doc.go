// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-line framework of the taskdesk binary.
//
// The central type is [Command]: a named subcommand with optional
// nested [Command.Subcommands], a parameter struct whose tagged
// fields become flags ([BindFlags]), and a Run function. Commands are
// assembled into a tree by the commands package and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing
// and structured help output with examples.
//
// Unknown subcommands and flags get a suggestion when a known name is
// within Levenshtein distance 3 (suggest.go).
//
// Errors returned by Run are classified with [ToolError] so main can
// print them consistently, and [ExitError] carries a non-zero exit
// code for commands that already printed their own output.
package cli
