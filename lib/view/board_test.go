// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
)

var keyA = taskrun.Key{ModuleID: "mod1", ScriptID: "scriptA"}

func TestBoardReplacesAndAppends(t *testing.T) {
	board := NewBoard()

	board.Observe(taskrun.Event{Kind: taskrun.EventSubmitting, Key: keyA})
	board.Observe(taskrun.Event{Kind: taskrun.EventSubmitted, Key: keyA, TaskID: "123"})
	board.Observe(taskrun.Event{Kind: taskrun.EventRunning, Key: keyA, TaskID: "123", Status: "running"})

	region := board.Region(keyA)
	if len(region.Blocks) != 1 {
		t.Fatalf("replace events left %d blocks, want 1", len(region.Blocks))
	}
	if region.Blocks[0].Status != "running" {
		t.Errorf("block status = %q, want running", region.Blocks[0].Status)
	}

	board.Observe(taskrun.Event{
		Kind:   taskrun.EventPollError,
		Key:    keyA,
		TaskID: "123",
		Err:    &taskrun.PollTransportError{Key: keyA, TaskID: "123", Err: errors.New("connection reset")},
	})
	region = board.Region(keyA)
	if len(region.Blocks) != 2 {
		t.Fatalf("poll error left %d blocks, want 2 (appended)", len(region.Blocks))
	}
	if region.Blocks[0].Status != "running" {
		t.Error("poll error replaced the prior content")
	}
	if last, _ := region.Last(); last.Error != "connection reset" {
		t.Errorf("poll error text = %q", last.Error)
	}

	// A new submission replaces everything again.
	board.Observe(taskrun.Event{Kind: taskrun.EventSubmitting, Key: keyA})
	if got := len(board.Region(keyA).Blocks); got != 1 {
		t.Errorf("new submission left %d blocks, want 1", got)
	}
}

func TestBoardRegionIsACopy(t *testing.T) {
	board := NewBoard()
	board.Observe(taskrun.Event{Kind: taskrun.EventSubmitted, Key: keyA, TaskID: "1"})
	region := board.Region(keyA)
	region.Blocks[0].TaskID = "mutated"
	if board.Region(keyA).Blocks[0].TaskID != "1" {
		t.Error("mutating a returned region changed the board")
	}
}

func TestBoardVersionAndReset(t *testing.T) {
	board := NewBoard()
	before := board.Version()
	board.Observe(taskrun.Event{Kind: taskrun.EventSubmitting, Key: keyA})
	if board.Version() <= before {
		t.Error("Observe did not bump the version")
	}
	if len(board.Keys()) != 1 {
		t.Errorf("Keys = %v", board.Keys())
	}
	board.Reset()
	if !board.Region(keyA).Empty() || len(board.Regions()) != 0 {
		t.Error("Reset left regions behind")
	}
}

func TestBlockFromEventErrors(t *testing.T) {
	tests := []struct {
		name  string
		event taskrun.Event
		want  string
	}{
		{
			name: "rejection detail",
			event: taskrun.Event{Kind: taskrun.EventRejected, Err: &taskrun.ExecutionRejected{
				Key: keyA, Message: "No access to module mod1",
			}},
			want: "No access to module mod1",
		},
		{
			name:  "job failed",
			event: taskrun.Event{Kind: taskrun.EventFailed, Err: &taskrun.JobFailed{Key: keyA, TaskID: "1", Message: "disk full"}},
			want:  "disk full",
		},
		{
			name:  "job failed without message",
			event: taskrun.Event{Kind: taskrun.EventFailed, Err: &taskrun.JobFailed{Key: keyA, TaskID: "1"}},
			want:  "task reported failure without a message",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := BlockFromEvent(test.event).Error; got != test.want {
				t.Errorf("Error = %q, want %q", got, test.want)
			}
		})
	}
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		block Block
		want  string
	}{
		{Block{Kind: taskrun.EventSubmitting}, "submitting task..."},
		{Block{Kind: taskrun.EventSubmitted, TaskID: "123"}, "task 123 submitted"},
		{Block{Kind: taskrun.EventRunning, TaskID: "123", Status: "started"}, "task 123 running, status: started"},
		{Block{Kind: taskrun.EventSucceeded, TaskID: "123"}, "task 123 succeeded"},
		{Block{Kind: taskrun.EventFailed, TaskID: "123", Error: "boom"}, "task 123 failed: boom"},
		{Block{Kind: taskrun.EventPollError, Error: "502 Bad Gateway"}, "polling error: 502 Bad Gateway"},
		{Block{Kind: taskrun.EventRejected, Error: "forbidden"}, "error: forbidden"},
	}
	for _, test := range tests {
		if got := Headline(test.block); got != test.want {
			t.Errorf("Headline(%v) = %q, want %q", test.block.Kind, got, test.want)
		}
	}
}

func TestBlockFromStatus(t *testing.T) {
	tests := []struct {
		status taskapi.TaskStatus
		want   string
	}{
		{taskapi.TaskStatus{TaskID: "7", Status: "started"}, "task 7 running, status: started"},
		{taskapi.TaskStatus{TaskID: "7", Status: "success", Result: json.RawMessage(`1`)}, "task 7 succeeded"},
		{taskapi.TaskStatus{TaskID: "7", Status: "failed", Error: "disk full"}, "task 7 failed: disk full"},
		{taskapi.TaskStatus{TaskID: "7", Status: "failed"}, "task 7 failed: task reported failure without a message"},
	}
	for _, test := range tests {
		if got := Headline(BlockFromStatus(&test.status)); got != test.want {
			t.Errorf("status %q: headline %q, want %q", test.status.Status, got, test.want)
		}
	}
}

func TestRenderBlockResult(t *testing.T) {
	block := Block{Kind: taskrun.EventSucceeded, TaskID: "123", Result: json.RawMessage(`{"ok":true}`)}
	got := RenderBlock(block, PlainStyles(), 80)
	want := "task 123 succeeded\n{\n  \"ok\": true\n}"
	if got != want {
		t.Errorf("RenderBlock =\n%s\nwant\n%s", got, want)
	}
}

func TestHighlightJSONColors(t *testing.T) {
	highlighted := HighlightJSON(json.RawMessage(`{"ok":true}`), DefaultStyles())
	if highlighted == PrettyJSON(json.RawMessage(`{"ok":true}`)) {
		t.Error("expected escape sequences in highlighted output")
	}
	if got := PrettyJSON(json.RawMessage(`not json`)); got != "not json" {
		t.Errorf("PrettyJSON(invalid) = %q", got)
	}
}
