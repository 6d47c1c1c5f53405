// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// FuzzyResult is the outcome of matching one text against a pattern.
type FuzzyResult struct {
	// Score is zero when the text does not match.
	Score int

	// Positions are the rune indices of matched characters.
	Positions []int
}

var fuzzyInitOnce sync.Once

// NewSlab returns scratch memory for FuzzyMatch. Reusing one slab
// across a filtering pass avoids per-call allocation.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm,
// case-insensitively. An empty pattern matches everything with score
// zero and no positions. slab may be nil.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	fuzzyInitOnce.Do(func() { algo.Init("default") })

	lowered := make([]rune, len(pattern))
	for index, character := range pattern {
		lowered[index] = unicode.ToLower(character)
	}
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, false, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}
	matched := FuzzyResult{Score: result.Score}
	if positions != nil {
		matched.Positions = slices.Clone(*positions)
		slices.Sort(matched.Positions)
	}
	return matched
}

// ScriptMatch is a script that passed the filter.
type ScriptMatch struct {
	Script taskapi.Script

	// Index is the script's position in its module.
	Index int

	// Score and Positions describe the match against the script's
	// name. Positions is empty when the match came from the ID or
	// description.
	Score     int
	Positions []int
}

// FilterScripts returns the scripts matching filter, best first. Each
// script is matched on its name, then ID, then description. An empty
// filter returns every script in catalog order.
func FilterScripts(scripts []taskapi.Script, filter string) []ScriptMatch {
	filter = strings.TrimSpace(filter)
	matches := make([]ScriptMatch, 0, len(scripts))
	if filter == "" {
		for index, script := range scripts {
			matches = append(matches, ScriptMatch{Script: script, Index: index})
		}
		return matches
	}

	pattern := []rune(filter)
	slab := NewSlab()
	for index, script := range scripts {
		match := ScriptMatch{Script: script, Index: index}
		if result := FuzzyMatch(script.Name, pattern, slab); result.Score > 0 {
			match.Score, match.Positions = result.Score, result.Positions
		} else if result := FuzzyMatch(script.ID, pattern, slab); result.Score > 0 {
			match.Score = result.Score
		} else if result := FuzzyMatch(script.Description, pattern, slab); result.Score > 0 {
			// Description matches rank below name and ID matches.
			match.Score = result.Score / 2
			if match.Score == 0 {
				match.Score = 1
			}
		} else {
			continue
		}
		matches = append(matches, match)
	}
	slices.SortStableFunc(matches, func(a, b ScriptMatch) int {
		return b.Score - a.Score
	})
	return matches
}
