// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "TASKDESK_CONFIG"

// Config is the complete client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Poll    PollConfig    `yaml:"poll"`
	Session SessionConfig `yaml:"session"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig locates the task platform API.
type ServerConfig struct {
	// BaseURL is the API root, including any version prefix.
	// Default: http://localhost:8000/api/v1
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds each HTTP request. Zero disables the
	// client-side deadline. Default: 30s
	RequestTimeout Duration `yaml:"request_timeout"`
}

// PollConfig configures task status polling.
type PollConfig struct {
	// Interval is the delay between a status query resolving and the
	// next one being issued. Default: 2s
	Interval Duration `yaml:"interval"`
}

// SessionConfig configures where the credential is persisted.
type SessionConfig struct {
	// File overrides the session file location. Empty means the
	// session package default (TASKDESK_SESSION_FILE, then
	// $XDG_CONFIG_HOME/taskdesk/session.json).
	File string `yaml:"file"`
}

// JournalConfig configures the local record of finished tasks.
type JournalConfig struct {
	// File is the journal path. Default:
	// $XDG_STATE_HOME/taskdesk/journal.cbor (or ~/.local/state/...).
	File string `yaml:"file"`

	// Disabled turns journaling off entirely.
	Disabled bool `yaml:"disabled"`

	// Limit is the default number of entries "history" shows.
	// Default: 20
	Limit int `yaml:"limit"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// File receives logs while the interactive UI owns the terminal.
	// Empty discards them.
	File string `yaml:"file"`
}

// Duration is a time.Duration that unmarshals from Go duration
// strings ("2s", "1m30s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        "http://localhost:8000/api/v1",
			RequestTimeout: Duration(30 * time.Second),
		},
		Poll: PollConfig{
			Interval: Duration(2 * time.Second),
		},
		Journal: JournalConfig{
			File:  defaultJournalPath(),
			Limit: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultJournalPath() string {
	stateDirectory := os.Getenv("XDG_STATE_HOME")
	if stateDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "taskdesk-journal.cbor")
		}
		stateDirectory = filepath.Join(homeDirectory, ".local", "state")
	}
	return filepath.Join(stateDirectory, "taskdesk", "journal.cbor")
}

// Load loads the file named by TASKDESK_CONFIG, or returns Default
// when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads path over the defaults, expands path variables, and
// validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Session.File = expandVars(c.Session.File, vars)
	c.Journal.File = expandVars(c.Journal.File, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Names in vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.BaseURL == "" {
		errs = append(errs, errors.New("server.base_url is required"))
	} else if parsed, err := url.Parse(c.Server.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("server.base_url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("server.base_url must be http or https, got %q", c.Server.BaseURL))
	}

	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}
	if c.Journal.Limit < 0 {
		errs = append(errs, errors.New("journal.limit must not be negative"))
	}
	if !c.Journal.Disabled && c.Journal.File == "" {
		errs = append(errs, errors.New("journal.file is required unless journal.disabled is set"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
