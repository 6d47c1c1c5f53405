// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package deskui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the main screen.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Module tabs.
	PreviousTab key.Binding
	NextTab     key.Binding
	JumpTab     key.Binding // 1-9 select a tab directly.

	Execute key.Binding

	FilterActivate key.Binding
	FilterClear    key.Binding

	Logout key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PreviousTab: key.NewBinding(
		key.WithKeys("h", "left", "shift+tab"),
		key.WithHelp("h/←", "previous module"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("l", "right", "tab"),
		key.WithHelp("l/→", "next module"),
	),
	JumpTab: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "module"),
	),
	Execute: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear filter"),
	),
	Logout: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "logout"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextTab, k.Execute, k.FilterActivate, k.Logout, k.Quit}
}
