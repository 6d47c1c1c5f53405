// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskrun

import (
	"errors"
	"fmt"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// ErrSuperseded is returned by Controller.Submit when a newer
// submission for the same key, or a CancelAll, overtook this one
// before it resolved. The returned task ID (if any) is not polled.
var ErrSuperseded = errors.New("taskrun: submission superseded")

// defaultRejectionMessage is shown when a rejection carries no usable
// text of its own.
const defaultRejectionMessage = "execution failed"

// ExecutionRejected is returned when the execute request fails: a
// transport error, a non-2xx response, or a 2xx response naming no
// task. No retry is attempted.
type ExecutionRejected struct {
	Key Key

	// Message is human-readable: the server's detail verbatim when it
	// sent one.
	Message string

	// Err is the underlying error.
	Err error
}

func (e *ExecutionRejected) Error() string {
	return fmt.Sprintf("executing %s: %s", e.Key, e.Message)
}

func (e *ExecutionRejected) Unwrap() error { return e.Err }

func newExecutionRejected(key Key, err error) *ExecutionRejected {
	message := defaultRejectionMessage
	var apiErr *taskapi.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message()
	} else if err != nil {
		message = err.Error()
	}
	return &ExecutionRejected{Key: key, Message: message, Err: err}
}

// JobFailed reports a task the platform marked failed.
type JobFailed struct {
	Key    Key
	TaskID string

	// Message is the task's error field, verbatim. It may be empty.
	Message string
}

func (e *JobFailed) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task %s (%s) failed", e.TaskID, e.Key)
	}
	return fmt.Sprintf("task %s (%s) failed: %s", e.TaskID, e.Key, e.Message)
}

// PollTransportError reports a status query that failed at the
// transport or protocol level. Polling for the key stopped.
type PollTransportError struct {
	Key    Key
	TaskID string
	Err    error
}

func (e *PollTransportError) Error() string {
	return fmt.Sprintf("polling task %s (%s): %v", e.TaskID, e.Key, e.Err)
}

func (e *PollTransportError) Unwrap() error { return e.Err }

// Message returns the user-facing text for the failure.
func (e *PollTransportError) Message() string { return taskapi.UserMessage(e.Err) }
