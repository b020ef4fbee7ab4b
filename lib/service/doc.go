// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements both ends of the Meridian call protocol.
//
// A Meridian service is a Go binary that registers named methods on a
// [Server] and hosts its [Server.Handler] with an [HTTPServer]. Callers
// reach it through a [Client], which reads the local access file for
// the service's port and bearer token.
//
// # Wire protocol
//
//	POST /call   Authorization: Bearer <token>
//	             body: CBOR {method: string, data: map}
//	             response: CBOR {success, code, data} or {success, code, error}
//	GET  /list   response: CBOR array of method names
//
// The response's HTTP status mirrors the envelope code, but clients
// read the envelope, not the status line.
//
// # Dispatch
//
// [Server.HandleCall] authenticates (401 missing header, 400 malformed
// header, 403 unknown token), decodes (400), validates the envelope
// shape (400), resolves the method (404), invokes it, and encodes the
// result. The token file is consulted on every call.
//
// Methods report expected failures by returning an [*Error] with an
// explicit code, or an [*ArgumentError] (400) when the request data
// does not fit their parameters; [Bind] produces the latter
// automatically. Any other error, and any panic, is a fault: it is
// logged and re-raised as a panic so that net/http drops the
// connection for that request only. Faults never become envelopes.
//
// A nil result becomes {}, a map or struct is sent as-is, and any
// other value is wrapped as {output: value}.
//
// # Discovery
//
// [Client.Service] fetches /list once and refuses, without a network
// round trip, calls to methods that were not listed. The list is a
// snapshot: later registrations on the server are not seen by that
// ServiceClient. [Client.CallService] skips discovery for one-off
// calls.
//
// # Additions
//
// Opt-in through [ServerConfig]: authentication on /list, a handler
// context deadline (408 when a method gives up on it), a request body
// cap (413), a token-bucket rate limit (429), and Prometheus metrics on
// /metrics. Each call runs in an OpenTelemetry span and carries an
// X-Request-ID that appears in both sides' logs.
package service
