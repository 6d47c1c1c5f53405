// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskrun

import (
	"encoding/json"
	"time"
)

// Key identifies one script within one module.
type Key struct {
	ModuleID string
	ScriptID string
}

func (k Key) String() string { return k.ModuleID + "/" + k.ScriptID }

// EventKind names a transition in a key's lifecycle.
type EventKind int

const (
	// EventSubmitting: the control was disabled and the execute
	// request sent.
	EventSubmitting EventKind = iota

	// EventSubmitted: the platform accepted the execution and polling
	// has started for TaskID.
	EventSubmitted

	// EventRejected: the execute request failed. Err is an
	// *ExecutionRejected. The control is enabled again.
	EventRejected

	// EventRunning: a status query returned a non-terminal label.
	EventRunning

	// EventSucceeded: the task finished with status success. Result
	// holds the payload.
	EventSucceeded

	// EventFailed: the task finished with status failed. Err is a
	// *JobFailed.
	EventFailed

	// EventPollError: a status query failed. Err is a
	// *PollTransportError. Polling stopped without retry.
	EventPollError
)

var eventKindNames = [...]string{
	EventSubmitting: "submitting",
	EventSubmitted:  "submitted",
	EventRejected:   "rejected",
	EventRunning:    "running",
	EventSucceeded:  "succeeded",
	EventFailed:     "failed",
	EventPollError:  "poll_error",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Terminal reports whether the event ends the key's lifecycle and
// re-enables its control.
func (k EventKind) Terminal() bool {
	switch k {
	case EventRejected, EventSucceeded, EventFailed, EventPollError:
		return true
	}
	return false
}

// Appends reports whether the event's content is added below the
// key's existing display region instead of replacing it. Only poll
// errors append, so the last known state stays visible.
func (k EventKind) Appends() bool { return k == EventPollError }

// Event is one lifecycle transition for a key.
type Event struct {
	Kind EventKind
	Key  Key
	Time time.Time

	// TaskID is set for every kind after EventSubmitted.
	TaskID string

	// Status is the platform's status label, verbatim.
	Status string

	// Message is the platform's execute message, if any.
	Message string

	// Result is the task's result payload. Set for EventSucceeded and
	// for EventRunning when the platform reports progress metadata.
	Result json.RawMessage

	// Err is set for EventRejected, EventFailed and EventPollError.
	Err error
}

// Observer receives lifecycle events.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(event Event) { f(event) }

// Observers fans one event out to several observers in order.
type Observers []Observer

func (o Observers) Observe(event Event) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(event)
		}
	}
}

type discardObserver struct{}

func (discardObserver) Observe(Event) {}
