// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/ansi"

	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// Headline returns the one-line plain-text summary of block.
func Headline(block Block) string {
	switch block.Kind {
	case taskrun.EventSubmitting:
		return "submitting task..."
	case taskrun.EventSubmitted:
		headline := fmt.Sprintf("task %s submitted", block.TaskID)
		if block.Message != "" {
			headline += ": " + block.Message
		}
		return headline
	case taskrun.EventRejected:
		return "error: " + block.Error
	case taskrun.EventRunning:
		return fmt.Sprintf("task %s running, status: %s", block.TaskID, block.Status)
	case taskrun.EventSucceeded:
		return fmt.Sprintf("task %s succeeded", block.TaskID)
	case taskrun.EventFailed:
		return fmt.Sprintf("task %s failed: %s", block.TaskID, block.Error)
	case taskrun.EventPollError:
		return "polling error: " + block.Error
	default:
		return block.Kind.String()
	}
}

// statusLabel picks the label that colors block's headline.
func statusLabel(block Block) string {
	switch block.Kind {
	case taskrun.EventSubmitting, taskrun.EventSubmitted:
		return "pending"
	case taskrun.EventRejected, taskrun.EventFailed, taskrun.EventPollError:
		return "failed"
	case taskrun.EventSucceeded:
		return "success"
	default:
		return block.Status
	}
}

// RenderBlock renders block at width. Results are pretty-printed JSON
// below the headline: the full result for success, progress metadata
// for running.
func RenderBlock(block Block, styles *Styles, width int) string {
	if styles == nil {
		styles = DefaultStyles()
	}
	headline := Headline(block)
	if width > 0 {
		headline = ansi.Wrap(headline, width, " ,.;-+|/")
	}
	var builder strings.Builder
	builder.WriteString(styles.status(statusLabel(block)).Render(headline))

	if len(block.Result) > 0 && (block.Kind == taskrun.EventSucceeded || block.Kind == taskrun.EventRunning) {
		builder.WriteString("\n")
		builder.WriteString(HighlightJSON(block.Result, styles))
	}
	return builder.String()
}

// RenderRegion renders every block of region, one after another.
func RenderRegion(region Region, styles *Styles, width int) string {
	parts := make([]string, 0, len(region.Blocks))
	for _, block := range region.Blocks {
		parts = append(parts, RenderBlock(block, styles, width))
	}
	return strings.Join(parts, "\n")
}

// PrettyJSON indents raw. Invalid JSON is returned unchanged.
func PrettyJSON(raw json.RawMessage) string {
	var buffer bytes.Buffer
	if err := json.Indent(&buffer, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buffer.String()
}

// HighlightJSON pretty-prints raw and syntax-highlights it with chroma.
// Plain styles, or a chroma failure, give the uncolored text.
func HighlightJSON(raw json.RawMessage, styles *Styles) string {
	pretty := PrettyJSON(raw)
	if styles != nil && styles.Plain() {
		return pretty
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, pretty, "json", "terminal256", "monokai"); err != nil {
		return pretty
	}
	return strings.TrimRight(buffer.String(), "\n")
}
