// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for Meridian binaries.
//
// Four variables are injected at build time via -ldflags -X:
//
//   - [GitCommit] is the short git SHA of the build
//   - [GitDirty] is "true" if the tree had uncommitted changes
//   - [BuildTime] is the UTC timestamp of the build
//   - [Version] is the release version
//
// Development builds and test runs see "unknown" and "0.1.0-dev".
// [Info] is what --version prints; [Full] adds the Go toolchain and
// platform.
package version
