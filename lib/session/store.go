// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/taskdesk/taskdesk/lib/secret"
	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// EnvironmentVariable overrides the session file location.
const EnvironmentVariable = "TASKDESK_SESSION_FILE"

// DefaultPath returns the session file path: $TASKDESK_SESSION_FILE if
// set, otherwise session.json under the taskdesk XDG config directory.
// Without either variable or a home directory there is no private
// place for the token, and the error says how to name one.
func DefaultPath() (string, error) {
	if envPath := os.Getenv(EnvironmentVariable); envPath != "" {
		return envPath, nil
	}
	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no session file location: set $%s or session.file: %w", EnvironmentVariable, err)
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "taskdesk", "session.json"), nil
}

// File is the on-disk session format.
type File struct {
	// AccessToken is the bearer token returned by login.
	AccessToken string `json:"access_token"`

	// BaseURL is the API root that issued the token.
	BaseURL string `json:"base_url"`

	// SavedAt is when the token was written, for display only.
	SavedAt time.Time `json:"saved_at"`
}

// Config configures a Store.
type Config struct {
	// Path is the session file. Empty means DefaultPath().
	Path string

	// BaseURL is the API root of the configured server. Sessions
	// saved for any other server are ignored.
	BaseURL string

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Store is the in-memory session plus its persisted credential. It is
// safe for concurrent use.
type Store struct {
	path    string
	baseURL string
	logger  *slog.Logger

	mu          sync.Mutex
	token       *secret.Buffer
	savedAt     time.Time
	user        *taskapi.UserInfo
	permissions map[string]struct{}
}

// NewStore creates an empty Store. Call Load to rehydrate a persisted
// credential. It fails only when Path is empty and DefaultPath has no
// answer.
func NewStore(config Config) (*Store, error) {
	path := config.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:    path,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  logger,
	}, nil
}

// Path returns the session file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted credential. It reports false, with a nil
// error, when there is no session file or the file belongs to a
// different server. A corrupt file is an error.
func (s *Store) Load() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading session file %s: %w", s.path, err)
	}

	var file File
	err = json.Unmarshal(data, &file)
	secret.Zero(data)
	if err != nil {
		return false, fmt.Errorf("parsing session file %s: %w", s.path, err)
	}
	if file.AccessToken == "" {
		return false, fmt.Errorf("session file %s has no access_token", s.path)
	}
	if strings.TrimRight(file.BaseURL, "/") != s.baseURL {
		s.logger.Info("ignoring session for a different server",
			"path", s.path,
			"session_base_url", file.BaseURL,
			"configured_base_url", s.baseURL,
		)
		return false, nil
	}

	token, err := secret.NewFromString(file.AccessToken)
	if err != nil {
		return false, fmt.Errorf("protecting session token: %w", err)
	}

	s.mu.Lock()
	s.replaceLocked(token)
	s.savedAt = file.SavedAt
	s.mu.Unlock()

	s.logger.Debug("session loaded", "path", s.path, "fingerprint", Fingerprint(token.Bytes()))
	return true, nil
}

// SetToken takes ownership of token, replaces any held credential and
// user, and persists the token to the session file. The in-memory
// credential is set even when persisting fails.
func (s *Store) SetToken(token *secret.Buffer) error {
	if token == nil || token.Len() == 0 {
		return fmt.Errorf("session: token is empty")
	}
	now := time.Now().UTC()

	s.mu.Lock()
	s.replaceLocked(token)
	s.savedAt = now
	file := File{AccessToken: token.String(), BaseURL: s.baseURL, SavedAt: now}
	s.mu.Unlock()

	return s.write(file)
}

// replaceLocked swaps in token and drops the user. Caller holds s.mu.
func (s *Store) replaceLocked(token *secret.Buffer) {
	if s.token != nil && s.token != token {
		s.token.Close()
	}
	s.token = token
	s.user = nil
	s.permissions = nil
}

func (s *Store) write(file File) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')
	defer secret.Zero(data)

	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}

	// Write through a temp file so a crash never leaves a truncated
	// session behind.
	temporary, err := os.CreateTemp(directory, ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating session file in %s: %w", directory, err)
	}
	temporaryPath := temporary.Name()
	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing session file %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing session file %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("installing session file %s: %w", s.path, err)
	}
	return nil
}

// SetUser records the identity returned by whoami.
func (s *Store) SetUser(info *taskapi.UserInfo) {
	if info == nil {
		return
	}
	permissions := make(map[string]struct{}, len(info.Permissions))
	for _, moduleID := range info.Permissions {
		permissions[moduleID] = struct{}{}
	}
	user := *info
	user.Permissions = slices.Clone(info.Permissions)

	s.mu.Lock()
	s.user = &user
	s.permissions = permissions
	s.mu.Unlock()
}

// User returns a copy of the current identity, or nil before whoami
// has succeeded.
func (s *Store) User() *taskapi.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	user.Permissions = slices.Clone(s.user.Permissions)
	return &user
}

// Permitted reports whether the current user may use moduleID.
func (s *Store) Permitted(moduleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.permissions[moduleID]
	return ok
}

// HasToken reports whether a credential is held.
func (s *Store) HasToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// AccessToken implements taskapi.TokenSource.
func (s *Store) AccessToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return "", taskapi.ErrNotAuthenticated
	}
	return s.token.String(), nil
}

// Fingerprint returns the fingerprint of the held credential, or ""
// when there is none.
func (s *Store) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return Fingerprint(s.token.Bytes())
}

// SavedAt returns when the held credential was persisted.
func (s *Store) SavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}

// Clear destroys the session: the token buffer is zeroed, the user is
// dropped, and the session file is removed. A missing file is not an
// error.
func (s *Store) Clear() error {
	s.mu.Lock()
	if s.token != nil {
		s.token.Close()
	}
	s.token = nil
	s.savedAt = time.Time{}
	s.user = nil
	s.permissions = nil
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file %s: %w", s.path, err)
	}
	return nil
}

// fingerprintLength is the number of hex characters Fingerprint keeps.
const fingerprintLength = 16

// Fingerprint returns a short BLAKE3 digest of token for logs and
// display. It identifies a token without revealing it.
func Fingerprint(token []byte) string {
	digest := blake3.Sum256(token)
	return hex.EncodeToString(digest[:])[:fingerprintLength]
}
