// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package deskui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/taskdesk/taskdesk/lib/desk"
	"github.com/taskdesk/taskdesk/lib/secret"
	"github.com/taskdesk/taskdesk/lib/taskrun"
	"github.com/taskdesk/taskdesk/lib/view"
)

type screen int

const (
	// screenStarting shows while a persisted session is verified.
	screenStarting screen = iota
	screenLogin
	screenMain
)

// Chrome below the body: status line and help line.
const footerHeight = 2

type startupMsg struct {
	found bool
	err   error
}

type loginMsg struct {
	err error
}

type executeMsg struct {
	key    taskrun.Key
	taskID string
	err    error
}

// Config configures a Model.
type Config struct {
	// Desk owns the session and the task controller. Required.
	Desk *desk.Desk

	// Board must receive the desk's task events. Required.
	Board *view.Board

	// Notifier must receive the desk's task events. Required.
	Notifier *Notifier

	// Styles renders the screen. Nil means view.DefaultStyles().
	Styles *view.Styles

	// Context bounds every request the model issues. Nil means
	// context.Background().
	Context context.Context

	// SessionRemoved, when set, signals that the session file was
	// removed by another process. The model then logs out.
	SessionRemoved <-chan struct{}
}

// Model is the bubbletea model of the desk.
type Model struct {
	ctx      context.Context
	desk     *desk.Desk
	board    *view.Board
	notifier *Notifier
	styles   *view.Styles
	keys     KeyMap

	sessionRemoved <-chan struct{}

	screen screen

	username     textinput.Model
	password     textinput.Model
	loginPending bool
	loginError   string

	spinner spinner.Model

	activeTab int
	selected  int
	filter    string
	filtering bool

	// notice is a one-line message for failures that have no
	// region to land in.
	notice string

	width  int
	height int
	ready  bool
	body   viewport.Model
}

// NewModel creates the model. It starts on a placeholder screen until
// Init's session check resolves.
func NewModel(config Config) Model {
	styles := config.Styles
	if styles == nil {
		styles = view.DefaultStyles()
	}
	ctx := config.Context
	if ctx == nil {
		ctx = context.Background()
	}

	username := textinput.New()
	username.Prompt = "username: "
	username.CharLimit = 128

	password := textinput.New()
	password.Prompt = "password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 256

	return Model{
		ctx:      ctx,
		desk:     config.Desk,
		board:    config.Board,
		notifier: config.Notifier,
		styles:   styles,
		keys:     DefaultKeyMap,
		screen:   screenStarting,
		username: username,
		password: password,
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		body:     viewport.New(0, 0),

		sessionRemoved: config.SessionRemoved,
	}
}

// Init implements tea.Model. It restores any persisted session and
// starts listening for task events.
func (model Model) Init() tea.Cmd {
	owner, ctx := model.desk, model.ctx
	startup := func() tea.Msg {
		found, err := owner.Startup(ctx)
		return startupMsg{found: found, err: err}
	}
	return tea.Batch(startup, model.notifier.listen(), model.listenSession(), model.spinner.Tick, textinput.Blink)
}

type sessionRemovedMsg struct{}

func (model Model) listenSession() tea.Cmd {
	if model.sessionRemoved == nil {
		return nil
	}
	removed := model.sessionRemoved
	return func() tea.Msg {
		<-removed
		return sessionRemovedMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	model, command := model.update(message)
	if model.screen == screenMain {
		model.syncBody()
	}
	return model, command
}

func (model Model) update(message tea.Msg) (Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		return model, nil

	case tea.KeyMsg:
		switch model.screen {
		case screenLogin:
			return model.handleLoginKeys(message)
		case screenMain:
			if model.filtering {
				return model.handleFilterKeys(message)
			}
			return model.handleMainKeys(message)
		}
		if message.Type == tea.KeyCtrlC {
			return model, tea.Quit
		}
		return model, nil

	case startupMsg:
		if message.found && message.err == nil {
			model.enterMain()
			return model, nil
		}
		if message.err != nil {
			model.loginError = authMessage(message.err)
		}
		return model, model.enterLogin()

	case loginMsg:
		model.loginPending = false
		if message.err != nil {
			model.loginError = authMessage(message.err)
			return model, model.enterLogin()
		}
		model.enterMain()
		return model, nil

	case executeMsg:
		switch {
		case message.err == nil,
			taskrun.IsRejected(message.err),
			errors.Is(message.err, taskrun.ErrSuperseded):
			// The key's region already shows the outcome.
		case errors.Is(message.err, desk.ErrNotLoggedIn):
			model.board.Reset()
			model.loginError = "session ended, sign in again"
			return model, model.enterLogin()
		default:
			model.notice = fmt.Sprintf("%s: %v", message.key, message.err)
		}
		return model, nil

	case boardChangedMsg:
		return model, model.notifier.listen()

	case sessionRemovedMsg:
		listen := model.listenSession()
		// Our own logout removes the file too, and a later login
		// writes it back.
		if model.screen != screenMain || model.desk.Store().Persisted() {
			return model, listen
		}
		if err := model.desk.Logout(); err != nil {
			model.loginError = err.Error()
		} else {
			model.loginError = "logged out from another terminal"
		}
		model.board.Reset()
		return model, tea.Batch(listen, model.enterLogin())

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command
	}

	if model.screen == screenLogin {
		return model.updateInputs(message)
	}
	return model, nil
}

func authMessage(err error) string {
	var failure *desk.AuthFailure
	if !errors.As(err, &failure) {
		return err.Error()
	}
	switch failure.Stage {
	case desk.StageVerify, desk.StageSessionFile:
		return "session expired: " + failure.Message
	case desk.StageCatalog:
		return "could not load modules: " + failure.Message
	}
	return failure.Message
}

func (model *Model) enterLogin() tea.Cmd {
	model.screen = screenLogin
	model.password.Reset()
	model.password.Blur()
	if model.username.Value() != "" {
		return model.password.Focus()
	}
	return model.username.Focus()
}

func (model *Model) enterMain() {
	model.screen = screenMain
	model.loginError = ""
	model.notice = ""
	model.activeTab = 0
	model.selected = 0
	model.filter = ""
	model.filtering = false
	model.username.Blur()
	model.password.Blur()
	model.body.GotoTop()
}

func (model Model) handleLoginKeys(message tea.KeyMsg) (Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return model, model.toggleLoginField()

	case tea.KeyEnter:
		if model.loginPending {
			return model, nil
		}
		if model.username.Focused() {
			return model, model.toggleLoginField()
		}
		return model.submitLogin()
	}
	return model.updateInputs(message)
}

func (model *Model) toggleLoginField() tea.Cmd {
	if model.username.Focused() {
		model.username.Blur()
		return model.password.Focus()
	}
	model.password.Blur()
	return model.username.Focus()
}

func (model Model) updateInputs(message tea.Msg) (Model, tea.Cmd) {
	var usernameCommand, passwordCommand tea.Cmd
	model.username, usernameCommand = model.username.Update(message)
	model.password, passwordCommand = model.password.Update(message)
	return model, tea.Batch(usernameCommand, passwordCommand)
}

func (model Model) submitLogin() (Model, tea.Cmd) {
	username := strings.TrimSpace(model.username.Value())
	if username == "" {
		model.loginError = "username is required"
		return model, model.enterLogin()
	}
	password, err := secret.NewFromString(model.password.Value())
	model.password.Reset()
	if err != nil {
		model.loginError = err.Error()
		return model, nil
	}

	model.loginPending = true
	model.loginError = ""
	owner, ctx := model.desk, model.ctx
	return model, func() tea.Msg {
		defer password.Close()
		return loginMsg{err: owner.Login(ctx, username, password)}
	}
}

func (model Model) handleMainKeys(message tea.KeyMsg) (Model, tea.Cmd) {
	model.notice = ""
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Logout):
		if err := model.desk.Logout(); err != nil {
			model.loginError = err.Error()
		}
		model.board.Reset()
		return model, model.enterLogin()

	case key.Matches(message, model.keys.Up):
		if model.selected > 0 {
			model.selected--
		}

	case key.Matches(message, model.keys.Down):
		if model.selected < len(model.projection().Scripts)-1 {
			model.selected++
		}

	case key.Matches(message, model.keys.PreviousTab):
		model.switchTab(model.activeTab - 1)

	case key.Matches(message, model.keys.NextTab):
		model.switchTab(model.activeTab + 1)

	case key.Matches(message, model.keys.JumpTab):
		model.switchTab(int(message.Runes[0] - '1'))

	case key.Matches(message, model.keys.FilterActivate):
		model.filtering = true
		model.selected = 0

	case key.Matches(message, model.keys.FilterClear):
		model.filter = ""
		model.selected = 0

	case key.Matches(message, model.keys.Execute):
		return model, model.execute()
	}
	return model, nil
}

func (model Model) handleFilterKeys(message tea.KeyMsg) (Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyCtrlC:
		return model, tea.Quit

	case tea.KeyEsc:
		// Esc clears the text first, then leaves filter mode.
		if model.filter != "" {
			model.filter = ""
		} else {
			model.filtering = false
		}

	case tea.KeyEnter:
		model.filtering = false

	case tea.KeyBackspace:
		if runes := []rune(model.filter); len(runes) > 0 {
			model.filter = string(runes[:len(runes)-1])
		}

	case tea.KeyRunes, tea.KeySpace:
		model.filter += string(message.Runes)
	}
	model.selected = 0
	return model, nil
}

func (model *Model) switchTab(tab int) {
	count := len(model.desk.VisibleModules())
	if count == 0 {
		return
	}
	tab = min(max(tab, 0), count-1)
	if tab == model.activeTab {
		return
	}
	model.activeTab = tab
	model.selected = 0
	model.filter = ""
	model.body.GotoTop()
}

// execute starts the selected script. A control that is already
// busy ignores activation. The control is disabled here, before the
// command runs, so repeated activation sends one request.
func (model Model) execute() tea.Cmd {
	row, ok := model.projection().SelectedScript()
	if !ok || row.Busy {
		return nil
	}
	key := row.Key
	submission, err := model.desk.Reserve(model.ctx, key)
	if err != nil {
		return func() tea.Msg { return executeMsg{key: key, err: err} }
	}
	return func() tea.Msg {
		taskID, err := submission.Send(nil)
		return executeMsg{key: key, taskID: taskID, err: err}
	}
}

func (model Model) frame() view.Frame {
	return view.Frame{
		User:      model.desk.User(),
		Modules:   model.desk.Modules(),
		ActiveTab: model.activeTab,
		Selected:  model.selected,
		Filter:    model.filter,
		Regions:   model.board.Regions(),
		Busy:      model.desk.Busy,
		Width:     model.width,
		Styles:    model.styles,
	}
}

func (model Model) projection() view.Projection {
	return view.Project(model.frame())
}

// syncBody re-renders the main screen into the viewport and scrolls
// the selected script into view.
func (model *Model) syncBody() {
	model.body.Width = model.width
	model.body.Height = max(model.height-footerHeight, 1)
	content := view.Render(model.frame())
	model.body.SetContent(content)

	for index, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(ansi.Strip(line), "▸ ") {
			continue
		}
		if index < model.body.YOffset {
			model.body.SetYOffset(index)
		} else if index >= model.body.YOffset+model.body.Height {
			model.body.SetYOffset(index - model.body.Height + 1)
		}
		break
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	switch model.screen {
	case screenLogin:
		return model.renderLogin()
	case screenMain:
		return model.body.View() + "\n" + model.renderStatus() + "\n" + model.renderHelp()
	}
	return model.spinner.View() + " checking session..."
}

func (model Model) renderLogin() string {
	title := model.styles.NewStyle().
		Foreground(model.styles.Theme.HeaderForeground).
		Bold(true).
		Render("taskdesk")
	faint := model.styles.NewStyle().Foreground(model.styles.Theme.FaintText)

	lines := []string{
		title,
		faint.Render("Sign in to " + model.desk.API().Client().BaseURL()),
		"",
		model.username.View(),
		model.password.View(),
		"",
	}
	switch {
	case model.loginPending:
		lines = append(lines, model.spinner.View()+" signing in...")
	case model.loginError != "":
		lines = append(lines, model.styles.NewStyle().
			Foreground(model.styles.Theme.StatusFailed).
			Render("error: "+model.loginError))
	default:
		lines = append(lines, faint.Render("tab switch field · enter sign in · C-c quit"))
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderStatus() string {
	faint := model.styles.NewStyle().Foreground(model.styles.Theme.FaintText)
	if model.notice != "" {
		return ansi.Truncate(model.styles.NewStyle().
			Foreground(model.styles.Theme.StatusFailed).
			Render(model.notice), model.width, "…")
	}
	if model.filtering {
		return faint.Render("filter: " + model.filter + "▏")
	}
	active := model.desk.Controller().Registry().ActiveCount()
	if active == 0 {
		return ""
	}
	noun := "tasks"
	if active == 1 {
		noun = "task"
	}
	return fmt.Sprintf("%s %s", model.spinner.View(), faint.Render(fmt.Sprintf("%d %s running", active, noun)))
}

func (model Model) renderHelp() string {
	faint := model.styles.NewStyle().Foreground(model.styles.Theme.HelpText)
	var parts []string
	for _, binding := range model.keys.ShortHelp() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return ansi.Truncate(faint.Render(strings.Join(parts, "  ")), model.width, "…")
}
