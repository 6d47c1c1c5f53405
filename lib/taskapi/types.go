// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskapi

import (
	"bytes"
	"encoding/json"
)

// Terminal task status labels. Every other label is in progress.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// LoginResponse is the body of POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserInfo is the body of GET /auth/me.
type UserInfo struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
}

// Script is one executable unit within a module.
type Script struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Module groups scripts behind a single permission.
type Module struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scripts     []Script `json:"scripts"`
}

// ModuleList is the body of GET /modules/list.
type ModuleList struct {
	Modules []Module `json:"modules"`
}

// ExecuteRequest is the body of POST /modules/execute.
type ExecuteRequest struct {
	ModuleName string         `json:"module_name"`
	Parameters map[string]any `json:"parameters"`
}

// ExecuteResponse is the body of a successful POST /modules/execute.
type ExecuteResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// TaskStatus is the body of GET /modules/tasks/{id}.
//
// Result is set when Status is success, and may also carry progress
// metadata while the task is in progress. Error is set when Status is
// failed.
type TaskStatus struct {
	TaskID string          `json:"task_id,omitempty"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Terminal reports whether Status is success or failed.
func (s *TaskStatus) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailed
}

// normalize drops a literal JSON null result so callers can test
// len(Result) == 0.
func (s *TaskStatus) normalize() {
	if bytes.Equal(bytes.TrimSpace(s.Result), []byte("null")) {
		s.Result = nil
	}
}
