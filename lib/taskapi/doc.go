// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskapi is the HTTP client for the task platform's REST API.
//
// [Client] is unauthenticated and performs [Client.Login]. An
// authenticated [Session] is obtained with [Client.Session] from a
// [TokenSource], usually the session store. The Session reads the
// token on every request rather than caching it, so once the store is
// cleared (logout) any straggling caller fails with
// [ErrNotAuthenticated] instead of sending a stale credential.
//
// Every non-2xx response becomes an [*APIError] carrying the HTTP
// status and the server's "detail" message verbatim. Transport
// failures are returned wrapped, unclassified.
package taskapi
