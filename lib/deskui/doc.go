// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package deskui is the interactive terminal front end: a login form
// followed by one tab per permitted module, each listing its scripts
// with an execute control and the script's live status region.
//
// The model never polls. Task progress arrives as taskrun events,
// which the caller routes to a [view.Board] and a [Notifier]; the
// notifier wakes the bubbletea program so the next View reads the
// board.
package deskui
