// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading and error-body
// decoding for the task platform's JSON API.
//
// Every response body is read through [MaxResponseSize] so a
// misbehaving server cannot exhaust memory. [ErrorDetail] extracts the
// human-readable "detail" field the platform puts in failure bodies.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON response reads at 64 MB. Task results are
// arbitrary script output, so the bound is generous.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorDetail extracts the "detail" message from a failure body.
//
// The platform sends either {"detail": "message"} or, for request
// validation errors, {"detail": [{"loc": [...], "msg": "..."}]}. The
// list form is flattened to "loc: msg; loc: msg". Returns "" when the
// body is not JSON or carries no detail.
func ErrorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var message string
	if err := json.Unmarshal(envelope.Detail, &message); err == nil {
		return message
	}

	var items []struct {
		Location []any  `json:"loc"`
		Message  string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if len(item.Location) == 0 {
				parts = append(parts, item.Message)
				continue
			}
			location := make([]string, len(item.Location))
			for index, element := range item.Location {
				location[index] = fmt.Sprint(element)
			}
			parts = append(parts, strings.Join(location, ".")+": "+item.Message)
		}
		return strings.Join(parts, "; ")
	}

	// Unknown shape: show it raw rather than dropping it.
	return string(envelope.Detail)
}
