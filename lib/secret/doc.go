// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds passwords and access tokens in memory that the
// Go runtime never sees.
//
// A [Buffer] is an anonymous mmap region, locked with mlock so it is
// never swapped and marked MADV_DONTDUMP so it is left out of core
// dumps. Close zeroes, unlocks, and unmaps it. Convert to a string
// only at the boundary that needs one (an Authorization header, a form
// body) and let that copy die young.
package secret
