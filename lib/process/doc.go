// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for Meridian binaries: the
// raw stderr output that happens before the structured logger exists
// or after main() has given up.
package process
