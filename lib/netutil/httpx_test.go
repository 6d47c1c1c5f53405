// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	var value struct {
		TaskID string `json:"task_id"`
	}
	if err := DecodeResponse(strings.NewReader(`{"task_id":"123"}`), &value); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if value.TaskID != "123" {
		t.Errorf("TaskID = %q, want %q", value.TaskID, "123")
	}

	if err := DecodeResponse(strings.NewReader(`not json`), &value); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Incorrect username or password"}`, "Incorrect username or password"},
		{"validation list", `{"detail":[{"loc":["body","module_name"],"msg":"field required"}]}`, "body.module_name: field required"},
		{"list without location", `{"detail":[{"msg":"bad"},{"loc":["query",0],"msg":"worse"}]}`, "bad; query.0: worse"},
		{"missing detail", `{"error":"x"}`, ""},
		{"not json", `<html>502</html>`, ""},
		{"object detail", `{"detail":{"code":7}}`, `{"code":7}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ErrorDetail([]byte(test.body)); got != test.want {
				t.Errorf("ErrorDetail(%s) = %q, want %q", test.body, got, test.want)
			}
		})
	}
}
