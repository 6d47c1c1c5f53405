// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/taskdesk/taskdesk/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	Version = "0.1.0-dev"
)

// Info returns "0.1.0-dev (abc1234, 2026-01-01T00:00:00Z)". When the
// commit was not injected it falls back to the VCS stamp the Go
// toolchain embeds.
func Info() string {
	commit, dirty, built := GitCommit, GitDirty == "true", BuildTime
	if commit == "unknown" {
		if stamped, ok := vcsStamp(); ok {
			commit, dirty, built = stamped.revision, stamped.modified, stamped.time
		}
	}
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, built)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent with every platform request.
func UserAgent() string {
	return "taskdesk/" + Version
}

type stamp struct {
	revision string
	modified bool
	time     string
}

func vcsStamp() (stamp, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp{}, false
	}
	result := stamp{time: "unknown"}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			result.revision = setting.Value
			if len(result.revision) > 7 {
				result.revision = result.revision[:7]
			}
		case "vcs.modified":
			result.modified = setting.Value == "true"
		case "vcs.time":
			result.time = setting.Value
		}
	}
	return result, result.revision != ""
}
