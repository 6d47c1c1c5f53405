// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskrun drives script executions on the task platform from
// submission to a terminal outcome.
//
// Executions are keyed by [Key], a (module, script) pair. Each key has
// a control (the thing a user activates to run the script) and at most
// one live poll. The [Controller] submits an execution and hands the
// returned task ID to the [Registry], which polls the task's status
// until it reaches success or failed, or until a status query fails.
//
// State machine per key:
//
//	Idle --Start--> Polling --success--> Succeeded (handle removed, control enabled)
//	                  |  ^   --failed---> Failed    (handle removed, control enabled)
//	                  |  |   --query error--> PollError (appended, not retried)
//	                  +--+ non-terminal status (re-rendered, next poll scheduled)
//
// Guarantees:
//
//   - At most one live poll handle exists per key. Starting a poll for
//     a key that already has one cancels the old handle first.
//   - The next status query is scheduled only after the previous one
//     resolves, so a key never has two queries in flight.
//   - A query result is applied only if the handle that issued it is
//     still the live handle for its key; results from superseded or
//     cancelled handles are discarded.
//   - When two submissions for one key resolve out of order, only the
//     most recent one may start polling.
//   - [Registry.CancelAll] stops every timer, aborts every in-flight
//     query and submission, and guarantees no further request is
//     issued by a previously active poll.
//
// State changes are reported to an [Observer] as [Event] values. All
// state for a transition is updated and its event delivered within a
// single critical section, so observers see events for a key in the
// order the transitions happened. Observers must return quickly and
// must not call back into the Controller or Registry.
package taskrun
