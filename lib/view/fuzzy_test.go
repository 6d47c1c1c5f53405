// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"testing"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		pattern   string
		wantMatch bool
	}{
		{"substring", "Full backup", "backup", true},
		{"non-contiguous", "Traceroute", "trc", true},
		{"case-insensitive", "Full Backup", "BACKUP", true},
		{"no match", "Ping", "xyz", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := FuzzyMatch(test.text, []rune(test.pattern), nil)
			if matched := result.Score > 0; matched != test.wantMatch {
				t.Errorf("matched = %v (score %d), want %v", matched, result.Score, test.wantMatch)
			}
			if test.wantMatch && len(result.Positions) != len([]rune(test.pattern)) {
				t.Errorf("Positions = %v, want %d entries", result.Positions, len(test.pattern))
			}
		})
	}
}

func TestFuzzyMatchEmptyPattern(t *testing.T) {
	result := FuzzyMatch("anything", nil, nil)
	if result.Score != 0 || len(result.Positions) != 0 {
		t.Errorf("empty pattern = %+v, want zero result", result)
	}
}

func TestFilterScripts(t *testing.T) {
	scripts := []taskapi.Script{
		{ID: "ping", Name: "Ping"},
		{ID: "trace", Name: "Traceroute"},
		{ID: "dns", Name: "Lookup", Description: "Resolve a hostname"},
	}

	if got := FilterScripts(scripts, "  "); len(got) != 3 || got[0].Script.ID != "ping" {
		t.Errorf("blank filter = %+v, want all in order", got)
	}

	byName := FilterScripts(scripts, "trace")
	if len(byName) != 1 || byName[0].Script.ID != "trace" || byName[0].Index != 1 {
		t.Errorf("filter trace = %+v", byName)
	}

	byDescription := FilterScripts(scripts, "hostname")
	if len(byDescription) != 1 || byDescription[0].Script.ID != "dns" {
		t.Fatalf("filter hostname = %+v", byDescription)
	}
	if len(byDescription[0].Positions) != 0 {
		t.Error("description match should not highlight the name")
	}
}
