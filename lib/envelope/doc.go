// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines the request and response envelopes that
// travel between a Meridian client and a service, and the error
// taxonomy that maps status codes onto failure envelopes.
//
// A request is a CBOR map:
//
//	{method: "test1", data: {test: true}}
//
// A response is a CBOR map carrying either the method's result or an
// error message:
//
//	{success: true,  code: 200, data: {output: "hi"}}
//	{success: false, code: 499, error: "my custom error"}
//
// The success flag is always derived from the code (code < 400), so a
// caller can branch on Success without consulting the code table.
// Transport-level failures (unknown route, oversized body) and
// application-level failures (an explicit method error) produce the
// same shape; see [NewError].
package envelope
