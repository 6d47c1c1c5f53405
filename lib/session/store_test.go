// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskdesk/taskdesk/lib/secret"
	"github.com/taskdesk/taskdesk/lib/taskapi"
)

const testBaseURL = "http://localhost:8000/api/v1"

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(Config{
		Path:    path,
		BaseURL: testBaseURL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func mustToken(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	token, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	return token
}

func TestDefaultPath(t *testing.T) {
	tests := []struct {
		name    string
		session string
		xdg     string
		home    string
		want    string
	}{
		{name: "environment override", session: "/custom/session.json", want: "/custom/session.json"},
		{name: "xdg config home", xdg: "/xdg", want: "/xdg/taskdesk/session.json"},
		{name: "home fallback", home: "/home/alice", want: "/home/alice/.config/taskdesk/session.json"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(EnvironmentVariable, test.session)
			t.Setenv("XDG_CONFIG_HOME", test.xdg)
			t.Setenv("HOME", test.home)
			got, err := DefaultPath()
			if err != nil {
				t.Fatalf("DefaultPath: %v", err)
			}
			if got != test.want {
				t.Errorf("DefaultPath() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestNoSessionLocation(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	path, err := DefaultPath()
	if err == nil {
		t.Fatalf("DefaultPath = %q with no home directory, want an error", path)
	}
	if !strings.Contains(err.Error(), EnvironmentVariable) {
		t.Errorf("error %q does not name %s", err, EnvironmentVariable)
	}
	if store, err := NewStore(Config{BaseURL: testBaseURL}); err == nil {
		t.Errorf("NewStore succeeded with path %q, want an error", store.Path())
	}
}

func TestSetTokenPersistsAndLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := newTestStore(t, path)

	if err := store.SetToken(mustToken(t, "T")); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("session file mode = %o, want 600", mode)
	}
	directoryInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Stat directory: %v", err)
	}
	if mode := directoryInfo.Mode().Perm(); mode != 0700 {
		t.Errorf("session directory mode = %o, want 700", mode)
	}

	reloaded := newTestStore(t, path)
	found, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("Load reported no session")
	}
	token, err := reloaded.AccessToken()
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "T" {
		t.Errorf("AccessToken = %q, want T", token)
	}
	if reloaded.User() != nil {
		t.Error("User should not be rehydrated from the session file")
	}
	if reloaded.Fingerprint() != store.Fingerprint() {
		t.Errorf("fingerprint changed across reload: %q vs %q", reloaded.Fingerprint(), store.Fingerprint())
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "session.json"))
	found, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("Load reported a session from a missing file")
	}
	if _, err := store.AccessToken(); !errors.Is(err, taskapi.ErrNotAuthenticated) {
		t.Errorf("AccessToken: got %v, want ErrNotAuthenticated", err)
	}
}

func TestLoadOtherServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	data, err := json.Marshal(File{AccessToken: "T", BaseURL: "https://elsewhere.example/api/v1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, path)
	found, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("Load accepted a session issued by a different server")
	}
	if store.HasToken() {
		t.Error("store holds a token after ignoring the file")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"no token", `{"base_url":"` + testBaseURL + `"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := newTestStore(t, path).Load(); err == nil {
				t.Error("Load succeeded on a corrupt file")
			}
		})
	}
}

func TestUserAndPermissions(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "session.json"))
	if store.Permitted("mod1") {
		t.Error("Permitted before SetUser")
	}

	permissions := []string{"mod1"}
	store.SetUser(&taskapi.UserInfo{Username: "alice", Permissions: permissions})
	permissions[0] = "mutated"

	if !store.Permitted("mod1") {
		t.Error("Permitted(mod1) = false")
	}
	if store.Permitted("mod2") {
		t.Error("Permitted(mod2) = true")
	}
	user := store.User()
	if user.Username != "alice" || user.Permissions[0] != "mod1" {
		t.Errorf("User() = %+v", user)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := newTestStore(t, path)
	if err := store.SetToken(mustToken(t, "T")); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	store.SetUser(&taskapi.UserInfo{Username: "alice", Permissions: []string{"mod1"}})

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("session file still present after Clear: %v", err)
	}
	if store.HasToken() || store.User() != nil || store.Permitted("mod1") {
		t.Error("store still holds session state after Clear")
	}
	if store.Fingerprint() != "" {
		t.Error("Fingerprint non-empty after Clear")
	}

	// Clearing an already-empty store is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestSetTokenReplacesUser(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "session.json"))
	if err := store.SetToken(mustToken(t, "first")); err != nil {
		t.Fatal(err)
	}
	store.SetUser(&taskapi.UserInfo{Username: "alice", Permissions: []string{"mod1"}})

	if err := store.SetToken(mustToken(t, "second")); err != nil {
		t.Fatal(err)
	}
	if store.User() != nil {
		t.Error("new token kept the previous user")
	}
	token, _ := store.AccessToken()
	if token != "second" {
		t.Errorf("AccessToken = %q, want second", token)
	}
}

func TestFingerprint(t *testing.T) {
	first := Fingerprint([]byte("token-a"))
	if len(first) != fingerprintLength {
		t.Errorf("len(Fingerprint) = %d, want %d", len(first), fingerprintLength)
	}
	if first != Fingerprint([]byte("token-a")) {
		t.Error("Fingerprint is not deterministic")
	}
	if first == Fingerprint([]byte("token-b")) {
		t.Error("different tokens share a fingerprint")
	}
}
