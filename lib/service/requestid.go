// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-call identifier between client and
// server. The server echoes it on the response and attaches it to
// every log line for the call.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds a caller-supplied request ID before it is
// trusted into logs.
const maxRequestIDLength = 128

type requestIDKey struct{}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID,
// or "" if there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestID returns a fresh random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// acceptRequestID returns the caller's ID if it is usable, otherwise a
// fresh one.
func acceptRequestID(supplied string) string {
	if supplied == "" || len(supplied) > maxRequestIDLength {
		return NewRequestID()
	}
	for _, r := range supplied {
		if r < 0x21 || r > 0x7e {
			return NewRequestID()
		}
	}
	return supplied
}
