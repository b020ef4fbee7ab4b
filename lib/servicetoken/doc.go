// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicetoken implements the shared-secret bearer tokens that
// authenticate callers to Meridian services, and the two files that
// hold them.
//
// A token is an opaque string of URL-safe base64 characters. It proves
// nothing beyond membership: a caller presenting a token listed in the
// service's token file is authorized for every method of that service.
// There is no scoping and no expiry.
//
// # Token file (server side)
//
// One token per line. [FileStore] re-reads the file on every
// [FileStore.Contains] call and never caches its contents, so a token
// appended or removed by an operator takes effect on the next request
// without a restart. Reads take a shared flock and appends an
// exclusive one, so a reader never observes a half-written line.
//
// # Access file (client side)
//
// One service per line:
//
//	<service-id>.<base64(port, big-endian)>.<token>
//
// for example "a0-IDAuthDB.H0Q=.tAk3...". [LoadAccessFile] parses the
// whole file into a map keyed by service id; a later line for the same
// id replaces an earlier one. A line that does not parse fails the
// whole load.
//
// # Transport
//
// Tokens travel in an HTTP Authorization header of the form
// "Bearer <token>"; see [ParseBearer].
package servicetoken
