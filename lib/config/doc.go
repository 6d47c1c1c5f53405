// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads taskdesk's YAML configuration.
//
// The file is named by the --config flag ([LoadFile]) or the
// TASKDESK_CONFIG environment variable ([Load]). Without either,
// [Default] is used unchanged: a client pointed at a local platform
// needs no configuration at all. Values in the file are merged over
// the defaults; other environment variables never override them.
//
// Path fields (session.file, journal.file, log.file) support ${VAR}
// and ${VAR:-default} expansion after loading.
//
// This package depends on no other taskdesk packages.
package config
