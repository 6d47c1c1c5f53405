// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"
	"time"
)

// Receive returns the next value from ch, failing the test if none
// arrives within timeout or ch is closed.
//
//	err := testutil.Receive(t, done, 5*time.Second, "submit result")
func Receive[T any](t testing.TB, ch <-chan T, timeout time.Duration, what string) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", what)
		}
		return value
	case <-time.After(timeout):
		t.Fatalf("%s: nothing received within %v", what, timeout)
	}
	panic("unreachable")
}

// Closed waits for ch to close (or deliver), failing the test after
// timeout.
func Closed(t testing.TB, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("%s: not closed within %v", what, timeout)
	}
}
