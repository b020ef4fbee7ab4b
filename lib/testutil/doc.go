// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Meridian packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests waiting on a server goroutine or a readiness
// channel fail with a message instead of hanging.
//
// [WriteFile] and [ReadLines] manage the line-oriented token and access
// files that servers and clients read, inside a per-test temporary
// directory.
//
// [UniqueID] generates monotonically increasing identifiers for
// tokens, request IDs, and method names that must not collide between
// parallel subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Meridian-internal dependencies.
package testutil
