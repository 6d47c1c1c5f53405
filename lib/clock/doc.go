// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that code which
// schedules work (the task poller in particular) can be driven
// deterministically from tests.
//
// Production code holds a [Clock] and calls Now, After, and AfterFunc
// on it instead of the time package. [Real] forwards to the time
// package. [Fake] returns a [FakeClock] whose time moves only when the
// test calls [FakeClock.Advance]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	registry := taskrun.NewRegistry(taskrun.RegistryConfig{Clock: fake, ...})
//	registry.Start(key, "task-1")
//	fake.WaitForTimers(1)
//	fake.Advance(2 * time.Second) // runs the first poll synchronously
//
// AfterFunc callbacks on a FakeClock run synchronously inside Advance,
// in deadline order. A callback may schedule further timers; those fire
// in the same Advance only if their deadline is not after the new time.
package clock
