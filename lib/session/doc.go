// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the authenticated user's credential and
// identity.
//
// A [Store] owns the access token (in a [secret.Buffer]) and the
// [taskapi.UserInfo] returned by whoami. The token is persisted to a
// session file so it survives process restarts; it is the only state
// rehydrated by [Store.Load]. The user identity is re-fetched from the
// server after every load.
//
// The session file is JSON, written with mode 0600 inside a 0700
// directory. Its location is resolved by [DefaultPath]:
//
//   - $TASKDESK_SESSION_FILE when set
//   - $XDG_CONFIG_HOME/taskdesk/session.json
//   - ~/.config/taskdesk/session.json
//
// With none of these available the Store cannot be created; the token
// is never written to a shared temporary directory.
//
// The file records the API base URL the token was issued by. Loading a
// file written for a different server behaves as if no session
// existed, so a token is never sent to a server that did not issue it.
//
// Store implements [taskapi.TokenSource]. Tokens are never logged;
// [Fingerprint] gives a short stable identifier for logs and whoami.
package session
