// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the taskdesk binary.
//
// Three variables are injected at build time via -ldflags -X:
//
//   - [GitCommit]: short git SHA of the build
//   - [GitDirty]: "true" if there were uncommitted changes
//   - [BuildTime]: UTC timestamp of the build
//
// [Version] is set manually for releases. Unset values read "unknown"
// in development builds and test runs.
package version
