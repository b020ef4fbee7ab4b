// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads for Meridian
// clients and servers.
//
// Every envelope read goes through [ReadBody] with an explicit limit,
// so a misbehaving peer cannot make either side allocate without bound.
// [ErrorBody] renders a short prefix of an unexpected (non-envelope)
// response for inclusion in error messages.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadBody when the body exceeds the limit.
var ErrTooLarge = errors.New("body exceeds size limit")

// errorBodyLimit bounds how much of an unexpected response is quoted
// in an error message.
const errorBodyLimit = 512

// ReadBody reads all of body, failing with ErrTooLarge if it holds
// more than limit bytes. Unlike a bare io.LimitReader, truncation is
// reported instead of silently returning a prefix.
func ReadBody(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// ErrorBody reads up to a few hundred bytes of body for a diagnostic
// message. Read errors are ignored: a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	return string(data)
}
