// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package desk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/taskdesk/taskdesk/lib/clock"
	"github.com/taskdesk/taskdesk/lib/secret"
	"github.com/taskdesk/taskdesk/lib/session"
	"github.com/taskdesk/taskdesk/lib/taskapi"
	"github.com/taskdesk/taskdesk/lib/taskrun"
	"github.com/taskdesk/taskdesk/lib/testutil"
)

var (
	keyA = taskrun.Key{ModuleID: "mod1", ScriptID: "scriptA"}
	keyB = taskrun.Key{ModuleID: "mod1", ScriptID: "scriptB"}
)

type harness struct {
	platform    *testutil.Platform
	clock       *clock.FakeClock
	desk        *Desk
	sessionPath string
	events      *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []taskrun.Event
}

func (l *eventLog) Observe(event taskrun.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) kinds(key taskrun.Key) []taskrun.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []taskrun.EventKind
	for _, event := range l.events {
		if event.Key == key {
			kinds = append(kinds, event.Kind)
		}
	}
	return kinds
}

func testModules() []taskapi.Module {
	return []taskapi.Module{
		{ID: "mod1", Name: "Network", Scripts: []taskapi.Script{{ID: "scriptA", Name: "Ping"}, {ID: "scriptB", Name: "Trace"}}},
		{ID: "mod2", Name: "Backup", Scripts: []taskapi.Script{{ID: "full", Name: "Full"}}},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	platform := testutil.NewPlatform(t)
	platform.AddUser("alice", "wonderland", "mod1")
	platform.SetModules(testModules()...)

	h := &harness{
		platform:    platform,
		clock:       clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		sessionPath: filepath.Join(t.TempDir(), "session.json"),
		events:      &eventLog{},
	}
	h.desk = h.newDesk(t)
	return h
}

// newDesk builds a desk sharing the harness's platform, clock and
// session file, as a fresh process would.
func (h *harness) newDesk(t *testing.T) *Desk {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := taskapi.NewClient(taskapi.ClientConfig{BaseURL: h.platform.BaseURL(), Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	store, err := session.NewStore(session.Config{Path: h.sessionPath, BaseURL: h.platform.BaseURL(), Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	desk, err := New(Config{
		Client:   client,
		Store:    store,
		Clock:    h.clock,
		Observer: h.events,
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(desk.Controller().CancelAll)
	return desk
}

func password(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.desk.Login(context.Background(), "alice", password(t, "wonderland")); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginShowsOnlyPermittedModules(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	if !h.desk.Authenticated() {
		t.Fatal("not authenticated after login")
	}
	if user := h.desk.User(); user.Username != "alice" {
		t.Errorf("User = %+v", user)
	}
	visible := h.desk.VisibleModules()
	if len(visible) != 1 || visible[0].ID != "mod1" {
		t.Errorf("VisibleModules = %+v, want only mod1", visible)
	}
	if len(h.desk.Modules()) != 2 {
		t.Errorf("Modules = %d, want the whole catalog", len(h.desk.Modules()))
	}
	if _, err := os.Stat(h.sessionPath); err != nil {
		t.Errorf("session not persisted: %v", err)
	}

	for _, request := range h.platform.Requests() {
		if request.Path == testutil.APIPrefix+"/auth/login" {
			if request.Authorization != "" {
				t.Error("login request carried a credential")
			}
			continue
		}
		if request.Authorization == "" {
			t.Errorf("%s %s sent without a credential", request.Method, request.Path)
		}
	}
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t)
	err := h.desk.Login(context.Background(), "alice", password(t, "wrong"))

	var failure *AuthFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Login: got %v, want *AuthFailure", err)
	}
	if failure.Stage != StageLogin || failure.Message != "Incorrect username or password" {
		t.Errorf("failure = %+v", failure)
	}
	if h.desk.Authenticated() {
		t.Error("authenticated after failed login")
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed login wrote a session file")
	}
}

func TestStartupWithoutSession(t *testing.T) {
	h := newHarness(t)
	found, err := h.desk.Startup(context.Background())
	if err != nil || found {
		t.Errorf("Startup = %v, %v, want false, nil", found, err)
	}
	if h.platform.RequestCount("/") != 0 {
		t.Error("Startup without a session contacted the platform")
	}
}

func TestStartupRestoresSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	restarted := h.newDesk(t)
	found, err := restarted.Startup(context.Background())
	if err != nil || !found {
		t.Fatalf("Startup = %v, %v", found, err)
	}
	if user := restarted.User(); user == nil || user.Username != "alice" {
		t.Errorf("User after startup = %+v", user)
	}
	if len(restarted.VisibleModules()) != 1 {
		t.Error("catalog not loaded at startup")
	}
}

func TestStartupWithRevokedToken(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.platform.RevokeTokens()

	restarted := h.newDesk(t)
	found, err := restarted.Startup(context.Background())
	var failure *AuthFailure
	if !errors.As(err, &failure) || failure.Stage != StageVerify {
		t.Fatalf("Startup: got %v, want verify AuthFailure", err)
	}
	if found || restarted.Authenticated() {
		t.Error("revoked session treated as valid")
	}
	if !taskapi.IsUnauthorized(err) {
		t.Error("AuthFailure does not wrap the 401")
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("session file kept after failed verification")
	}
}

func TestStartupWithCorruptSessionFile(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.sessionPath, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := h.desk.Startup(context.Background())
	var failure *AuthFailure
	if !errors.As(err, &failure) || failure.Stage != StageSessionFile {
		t.Fatalf("Startup: got %v, want session file AuthFailure", err)
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt session file left in place")
	}
}

func TestCatalogFailureForcesLogout(t *testing.T) {
	tests := []struct {
		name   string
		status int
		detail string
	}{
		{"server error", http.StatusServiceUnavailable, "catalog offline"},
		{"session rejected", http.StatusUnauthorized, "Token expired"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			h.platform.FailModuleList(test.status, test.detail)

			err := h.desk.Login(context.Background(), "alice", password(t, "wonderland"))
			var failure *AuthFailure
			if !errors.As(err, &failure) || failure.Stage != StageCatalog {
				t.Fatalf("Login: got %v, want catalog AuthFailure", err)
			}
			if failure.Message != test.detail {
				t.Errorf("Message = %q, want %q", failure.Message, test.detail)
			}
			if h.desk.Authenticated() || h.desk.User() != nil || len(h.desk.Modules()) != 0 {
				t.Error("desk not reset after catalog failure")
			}
			if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
				t.Error("session file kept after catalog failure")
			}
		})
	}
}

func TestExecuteRunningThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.platform.QueueTaskIDs("123")
	h.platform.ScriptStatuses("123",
		taskapi.TaskStatus{Status: "running"},
		taskapi.TaskStatus{Status: "success", Result: json.RawMessage(`{"ok":true}`)},
	)

	taskID, err := h.desk.Execute(context.Background(), keyA, map[string]any{"host": "example.com"})
	if err != nil || taskID != "123" {
		t.Fatalf("Execute = %q, %v", taskID, err)
	}
	if !h.desk.Busy(keyA) {
		t.Error("control enabled while polling")
	}

	h.clock.Advance(taskrun.DefaultPollInterval)
	h.clock.Advance(taskrun.DefaultPollInterval)

	want := []taskrun.EventKind{
		taskrun.EventSubmitting, taskrun.EventSubmitted, taskrun.EventRunning, taskrun.EventSucceeded,
	}
	got := h.events.kinds(keyA)
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if h.desk.Busy(keyA) {
		t.Error("control disabled after success")
	}
	if executions := h.platform.Executions(); len(executions) != 1 || executions[0].Parameters["host"] != "example.com" {
		t.Errorf("executions = %+v", executions)
	}
}

func TestLogoutCancelsEveryPoll(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.platform.SetDefaultStatuses(taskapi.TaskStatus{Status: "running"})

	for _, key := range []taskrun.Key{keyA, keyB} {
		if _, err := h.desk.Execute(context.Background(), key, nil); err != nil {
			t.Fatalf("Execute %s: %v", key, err)
		}
	}
	h.clock.Advance(taskrun.DefaultPollInterval)
	if got := h.desk.Controller().Registry().ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}
	pollsBefore := h.platform.RequestCount("/modules/tasks/")

	if err := h.desk.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.clock.PendingCount() != 0 {
		t.Errorf("%d timers pending after logout", h.clock.PendingCount())
	}
	h.clock.Advance(time.Minute)
	if got := h.platform.RequestCount("/modules/tasks/"); got != pollsBefore {
		t.Errorf("status queries after logout: %d, want %d", got, pollsBefore)
	}
	if h.desk.Authenticated() {
		t.Error("authenticated after logout")
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("session file kept after logout")
	}
}

func TestExecuteRequiresLogin(t *testing.T) {
	h := newHarness(t)
	if _, err := h.desk.Execute(context.Background(), keyA, nil); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Execute: got %v, want ErrNotLoggedIn", err)
	}
}

func TestLookupRespectsPermissions(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if _, _, ok := h.desk.Lookup("mod1", "scriptA"); !ok {
		t.Error("Lookup(mod1, scriptA) failed")
	}
	if _, _, ok := h.desk.Lookup("mod2", "full"); ok {
		t.Error("Lookup resolved a module alice may not use")
	}
}

func TestLoginReplacesExistingSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.platform.SetDefaultStatuses(taskapi.TaskStatus{Status: "running"})
	if _, err := h.desk.Execute(context.Background(), keyA, nil); err != nil {
		t.Fatal(err)
	}

	h.login(t)
	if got := h.desk.Controller().Registry().ActiveCount(); got != 0 {
		t.Errorf("polls from the previous session survived login: %d", got)
	}
}
