// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package deskui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// Notifier is a taskrun.Observer that signals the program to redraw.
// Signals coalesce: any number of events between two redraws produce
// one wakeup. Observe never blocks.
type Notifier struct {
	wake chan struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{wake: make(chan struct{}, 1)}
}

// Observe implements taskrun.Observer.
func (n *Notifier) Observe(taskrun.Event) {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

type boardChangedMsg struct{}

// listen returns a tea.Cmd that blocks until the next signal.
func (n *Notifier) listen() tea.Cmd {
	return func() tea.Msg {
		<-n.wake
		return boardChangedMsg{}
	}
}
