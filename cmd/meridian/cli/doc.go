// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the meridian
// binary: a tree of [Command] values with pflag flag sets, help output,
// typo suggestions, categorized errors ([ToolError]) and [ExitError]
// for commands that report their own failure.
package cli
