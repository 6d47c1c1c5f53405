// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotAuthenticated is returned by Session methods when the token
// source holds no credential.
var ErrNotAuthenticated = errors.New("taskapi: not authenticated")

// RequestIDHeader carries the UUID the client generates for every
// request, so client logs can be matched with platform logs.
const RequestIDHeader = "X-Request-ID"

// APIError is a non-2xx response from the platform. Use errors.As to
// inspect it:
//
//	var apiErr *taskapi.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized { ... }
type APIError struct {
	Method     string
	Path       string
	StatusCode int

	// Detail is the server's "detail" message, verbatim. Empty when
	// the body carried none.
	Detail string

	// RequestID is the X-Request-ID the failed request was sent with.
	RequestID string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("taskapi: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("taskapi: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Message returns the text to show a user: the server's detail when it
// sent one, otherwise the HTTP status text.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnauthorized reports whether err is a 401 or 403 from the platform.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// UserMessage returns the most useful human-readable text for err: the
// server's detail for an APIError, the error text otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
