// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the meridian command tree: calling and
// listing service methods through an access file, enumerating known
// services, and minting tokens.
package commands
