// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for taskdesk packages.
//
// [Platform] is an in-process fake of the task platform's REST API,
// served by httptest. Tests register users and modules, queue task IDs,
// script the status sequence each task reports, and inject failures.
// Every request is recorded so tests can assert what was (and was not)
// sent, for example that nothing is polled after logout.
//
// [Receive] and [Closed] wrap the select-with-timeout pattern so tests
// that wait on goroutines fail cleanly instead of hanging.
//
// [UniqueID] mints identifiers that are distinct across a test binary.
//
// All helpers call t.Fatalf on failure.
package testutil
