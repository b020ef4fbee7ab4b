// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Meridian
// services and the meridian CLI.
//
// Configuration is loaded from a single file named either by the
// MERIDIAN_CONFIG environment variable (via [Load]) or by a --config
// flag (via [LoadFile]). There is no search path and no per-field
// environment override: the file is the whole truth.
//
// The file has a service section (what a service binary listens on and
// which token file it trusts) and a client section (which access file
// the CLI reads). Environment-specific sections (development, staging,
// production) override base values when [Config].Environment matches.
// Production is stricter by default: /list requires authentication.
//
// ${HOME}, ${MERIDIAN_ROOT}, and ${VAR:-default} are expanded in path
// fields after loading.
package config
