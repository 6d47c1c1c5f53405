// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// Theme defines the color palette. All colors are ANSI 256-color
// codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	ActiveTabForeground   lipgloss.Color
	ActiveTabBackground   lipgloss.Color
	InactiveTabForeground lipgloss.Color

	StatusPending lipgloss.Color
	StatusRunning lipgloss.Color
	StatusSuccess lipgloss.Color
	StatusFailed  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// MatchHighlight colors characters matched by the script filter.
	MatchHighlight lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	ActiveTabForeground:   lipgloss.Color("255"),
	ActiveTabBackground:   lipgloss.Color("62"),
	InactiveTabForeground: lipgloss.Color("245"),

	StatusPending: lipgloss.Color("75"),  // blue
	StatusRunning: lipgloss.Color("220"), // amber
	StatusSuccess: lipgloss.Color("114"), // green
	StatusFailed:  lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	MatchHighlight: lipgloss.Color("214"),
}

// StatusColor returns the color for a platform status label. Unknown
// non-terminal labels are shown as running.
func (theme Theme) StatusColor(status string) lipgloss.Color {
	switch status {
	case taskapi.StatusSuccess:
		return theme.StatusSuccess
	case taskapi.StatusFailed:
		return theme.StatusFailed
	case "pending", "":
		return theme.StatusPending
	default:
		return theme.StatusRunning
	}
}

// Styles binds a Theme to a lipgloss renderer with a fixed color
// profile.
type Styles struct {
	Theme    Theme
	renderer *lipgloss.Renderer
	profile  termenv.Profile
}

// NewStyles creates Styles for profile. termenv.Ascii produces plain
// text, suitable for logs and pipes.
func NewStyles(theme Theme, profile termenv.Profile) *Styles {
	// SetColorProfile is needed as well: the renderer otherwise
	// re-detects the profile from the environment.
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &Styles{Theme: theme, renderer: renderer, profile: profile}
}

// DefaultStyles returns DefaultTheme with the ANSI 256-color profile.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme, termenv.ANSI256)
}

// PlainStyles returns styles that emit no escape sequences.
func PlainStyles() *Styles {
	return NewStyles(DefaultTheme, termenv.Ascii)
}

// Plain reports whether the styles emit no color.
func (s *Styles) Plain() bool { return s.profile == termenv.Ascii }

// NewStyle returns a style bound to the pinned renderer.
func (s *Styles) NewStyle() lipgloss.Style { return s.renderer.NewStyle() }

func (s *Styles) foreground(color lipgloss.Color) lipgloss.Style {
	return s.renderer.NewStyle().Foreground(color)
}

func (s *Styles) faint() lipgloss.Style  { return s.foreground(s.Theme.FaintText) }
func (s *Styles) normal() lipgloss.Style { return s.foreground(s.Theme.NormalText) }

func (s *Styles) status(label string) lipgloss.Style {
	return s.foreground(s.Theme.StatusColor(label)).Bold(true)
}
