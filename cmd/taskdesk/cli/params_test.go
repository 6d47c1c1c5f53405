// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

type serverFlags struct {
	BaseURL string
}

func (s *serverFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&s.BaseURL, "server", "", "platform URL")
}

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string        `flag:"name" desc:"the name"`
		Verbose  bool          `flag:"verbose,v" desc:"verbose output"`
		Limit    int           `flag:"limit" desc:"entries" default:"20"`
		Timeout  time.Duration `flag:"timeout" desc:"request timeout" default:"30s"`
		Tags     []string      `flag:"tags" desc:"tag list"`
		Untagged string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if p.Limit != 20 || p.Timeout != 30*time.Second {
		t.Errorf("defaults not applied: %+v", p)
	}

	if err := flagSet.Parse([]string{"--name", "alice", "-v", "--limit", "5", "--timeout", "2s", "--tags", "a,b"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "alice" || !p.Verbose || p.Limit != 5 || p.Timeout != 2*time.Second {
		t.Errorf("parsed = %+v", p)
	}
	if strings.Join(p.Tags, "|") != "a|b" {
		t.Errorf("Tags = %q", p.Tags)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field bound")
	}
}

func TestBindFlags_FlagBinderAndEmbedding(t *testing.T) {
	type params struct {
		Server serverFlags
		JSONOutput
	}
	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse([]string{"--server", "http://x", "--json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Server.BaseURL != "http://x" || !p.OutputJSON {
		t.Errorf("parsed = %+v", p)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"not a pointer", struct{}{}, "pointer to a struct"},
		{"bad default", &struct {
			Limit int `flag:"limit" default:"many"`
		}{}, "default for --limit"},
		{"unsupported type", &struct {
			Rate float32 `flag:"rate"`
		}{}, "unsupported type"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := BindFlags(test.params, pflag.NewFlagSet("test", pflag.ContinueOnError))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("BindFlags error = %v, want containing %q", err, test.want)
			}
		})
	}
}
