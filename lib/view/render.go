// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
)

// Frame is everything one render reads.
type Frame struct {
	// User is the signed-in user. Nil renders no tabs.
	User *taskapi.UserInfo

	// Modules is the full catalog. Only modules in the user's
	// permissions become tabs.
	Modules []taskapi.Module

	// ActiveTab indexes the visible tabs. Out-of-range values are
	// clamped.
	ActiveTab int

	// Selected indexes the active tab's (filtered) script list.
	Selected int

	// Filter fuzzy-filters the active tab's scripts.
	Filter string

	// Regions is the per-key display content, usually Board.Regions().
	Regions map[taskrun.Key]Region

	// Busy reports whether a key's control is disabled. Nil means
	// never busy.
	Busy func(taskrun.Key) bool

	// Width is the terminal width. Zero means 80.
	Width int

	// Styles for Render. Nil means DefaultStyles().
	Styles *Styles
}

// Tab is one module tab.
type Tab struct {
	Module taskapi.Module
	Active bool
}

// ScriptRow is one script of the active tab.
type ScriptRow struct {
	Key       taskrun.Key
	Script    taskapi.Script
	Busy      bool
	Selected  bool
	Region    Region
	Positions []int
}

// Projection is the pure data a Frame renders to.
type Projection struct {
	Username string

	// Tabs are the permitted modules in catalog order.
	Tabs []Tab

	// Active indexes Tabs, or is -1 when there are none.
	Active int

	// Scripts lists the active tab's scripts after filtering.
	Scripts []ScriptRow

	// Selected indexes Scripts, or is -1 when it is empty.
	Selected int
}

// ActiveModule returns the active tab's module.
func (p Projection) ActiveModule() (taskapi.Module, bool) {
	if p.Active < 0 || p.Active >= len(p.Tabs) {
		return taskapi.Module{}, false
	}
	return p.Tabs[p.Active].Module, true
}

// SelectedScript returns the selected script row.
func (p Projection) SelectedScript() (ScriptRow, bool) {
	if p.Selected < 0 || p.Selected >= len(p.Scripts) {
		return ScriptRow{}, false
	}
	return p.Scripts[p.Selected], true
}

// VisibleModules returns the modules in user's permission set, in
// catalog order.
func VisibleModules(user *taskapi.UserInfo, modules []taskapi.Module) []taskapi.Module {
	if user == nil {
		return nil
	}
	var visible []taskapi.Module
	for _, module := range modules {
		if slices.Contains(user.Permissions, module.ID) {
			visible = append(visible, module)
		}
	}
	return visible
}

func clamp(value, length int) int {
	if length == 0 {
		return -1
	}
	return min(max(value, 0), length-1)
}

// Project computes the visible tabs, the active tab and its script
// rows.
func Project(frame Frame) Projection {
	projection := Projection{Active: -1, Selected: -1}
	if frame.User != nil {
		projection.Username = frame.User.Username
	}

	visible := VisibleModules(frame.User, frame.Modules)
	projection.Active = clamp(frame.ActiveTab, len(visible))
	for index, module := range visible {
		projection.Tabs = append(projection.Tabs, Tab{Module: module, Active: index == projection.Active})
	}
	module, ok := projection.ActiveModule()
	if !ok {
		return projection
	}

	matches := FilterScripts(module.Scripts, frame.Filter)
	projection.Selected = clamp(frame.Selected, len(matches))
	for index, match := range matches {
		key := taskrun.Key{ModuleID: module.ID, ScriptID: match.Script.ID}
		row := ScriptRow{
			Key:       key,
			Script:    match.Script,
			Selected:  index == projection.Selected,
			Region:    frame.Regions[key],
			Positions: match.Positions,
		}
		if frame.Busy != nil {
			row.Busy = frame.Busy(key)
		}
		projection.Scripts = append(projection.Scripts, row)
	}
	return projection
}

// Render draws frame: header, tab bar, the active module's
// description and its scripts with their regions.
func Render(frame Frame) string {
	styles := frame.Styles
	if styles == nil {
		styles = DefaultStyles()
	}
	width := frame.Width
	if width <= 0 {
		width = 80
	}
	projection := Project(frame)

	var sections []string
	sections = append(sections, renderHeader(projection, styles, width))
	if len(projection.Tabs) == 0 {
		sections = append(sections, styles.faint().Render("No modules available."))
		return strings.Join(sections, "\n")
	}
	sections = append(sections, renderTabs(projection, styles, width))
	sections = append(sections, styles.foreground(styles.Theme.BorderColor).Render(strings.Repeat("─", width)))

	module, _ := projection.ActiveModule()
	if description := RenderMarkdown(module.Description, styles, width); description != "" {
		sections = append(sections, description, "")
	}
	if frame.Filter != "" {
		sections = append(sections, styles.faint().Render("filter: "+frame.Filter))
	}
	if len(projection.Scripts) == 0 {
		if frame.Filter != "" {
			sections = append(sections, styles.faint().Render("No scripts match the filter."))
		} else {
			sections = append(sections, styles.faint().Render("This module has no scripts."))
		}
	}
	for _, row := range projection.Scripts {
		sections = append(sections, renderScript(row, styles, width))
	}
	return strings.Join(sections, "\n")
}

func renderHeader(projection Projection, styles *Styles, width int) string {
	title := styles.foreground(styles.Theme.HeaderForeground).Bold(true).Render("taskdesk")
	if projection.Username != "" {
		title += styles.faint().Render(" · " + projection.Username)
	}
	return ansi.Truncate(title, width, "…")
}

func renderTabs(projection Projection, styles *Styles, width int) string {
	active := styles.NewStyle().
		Foreground(styles.Theme.ActiveTabForeground).
		Background(styles.Theme.ActiveTabBackground).
		Bold(true).
		Padding(0, 1)
	inactive := styles.NewStyle().
		Foreground(styles.Theme.InactiveTabForeground).
		Padding(0, 1)

	labels := make([]string, 0, len(projection.Tabs))
	for _, tab := range projection.Tabs {
		name := tab.Module.Name
		if name == "" {
			name = tab.Module.ID
		}
		if tab.Active {
			labels = append(labels, active.Render(name))
		} else {
			labels = append(labels, inactive.Render(name))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, labels...)
	return ansi.Truncate(bar, width, "…")
}

func renderScript(row ScriptRow, styles *Styles, width int) string {
	marker := "  "
	if row.Selected {
		marker = styles.foreground(styles.Theme.SelectedForeground).Bold(true).Render("▸ ")
	}
	name := row.Script.Name
	if name == "" {
		name = row.Script.ID
	}
	title := highlightPositions(name, row.Positions, styles, row.Selected)
	if row.Busy {
		title += " " + styles.status("started").Render("[running]")
	}

	lines := []string{ansi.Truncate(marker+title, width, "…")}
	contentWidth := max(width-4, 10)
	if description := RenderMarkdown(row.Script.Description, styles, contentWidth); description != "" {
		lines = append(lines, indent(description, "    "))
	}
	if !row.Region.Empty() {
		lines = append(lines, indent(RenderRegion(row.Region, styles, contentWidth), "    "))
	}
	return strings.Join(lines, "\n")
}

// highlightPositions styles name, emphasizing the runes at positions.
func highlightPositions(name string, positions []int, styles *Styles, selected bool) string {
	base := styles.normal()
	if selected {
		base = styles.foreground(styles.Theme.SelectedForeground).Bold(true)
	}
	if len(positions) == 0 {
		return base.Render(name)
	}
	highlight := base.Foreground(styles.Theme.MatchHighlight).Underline(true)
	var builder strings.Builder
	for index, character := range []rune(name) {
		if slices.Contains(positions, index) {
			builder.WriteString(highlight.Render(string(character)))
		} else {
			builder.WriteString(base.Render(string(character)))
		}
	}
	return builder.String()
}

func indent(content, prefix string) string {
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		if line != "" {
			lines[index] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
