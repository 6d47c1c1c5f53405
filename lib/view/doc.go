// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package view renders the desk: the tab bar of permitted modules, the
// active module's scripts, and each script's status region.
//
// Rendering is a pure projection. [Project] turns a [Frame] (user,
// catalog, selection, region snapshot) into a [Projection] of plain
// data, and [Render] styles it for the terminal. Neither keeps state
// between calls.
//
// The only state the renderer reads is held by a [Board]: one
// [Region] per (module, script) key, built from taskrun lifecycle
// events. Most events replace a region's content; a poll error is
// appended below it so the last known state stays visible.
//
// Styling uses lipgloss with a renderer pinned to a color profile
// ([NewStyles]), so output is deterministic whether or not a terminal
// is attached. JSON results are highlighted with chroma and
// descriptions are rendered as markdown.
package view
