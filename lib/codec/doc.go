// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Meridian's standard CBOR encoding configuration.
//
// Every Meridian wire message (the /call request and response
// envelopes and the /list method listing) is a CBOR map or array.
// CBOR is a compact, self-describing binary map format, so a request
// built by any client library decodes without a schema on the server.
//
// This package provides the shared CBOR encoding and decoding modes so
// that the server, the client and the CLI encode identically. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes.
//
// For buffer-oriented operations (HTTP bodies):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Dynamic values
//
// Method arguments and results travel as map[string]any. When the
// decode target is any, maps decode as map[string]any (never
// map[any]any), unsigned integers as uint64, negative integers as
// int64, and floats as float64. Code that consumes decoded values
// must accept these concrete types; lib/service binds them into typed
// parameter structs with numeric conversion.
package codec
