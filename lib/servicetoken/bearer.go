// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"errors"
	"regexp"
)

var (
	// ErrMissingCredentials is returned by ParseBearer for an absent
	// or empty Authorization header.
	ErrMissingCredentials = errors.New("missing Authorization header")

	// ErrMalformedCredentials is returned by ParseBearer for a header
	// that is not of the form "Bearer <token>".
	ErrMalformedCredentials = errors.New("malformed Authorization header, expected \"Bearer <token>\"")
)

var bearerPattern = regexp.MustCompile(`^Bearer\s+([A-Za-z0-9\-_]+)$`)

// tokenPattern is the character set of a token, shared by the bearer
// header and the access file.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}
	match := bearerPattern.FindStringSubmatch(header)
	if match == nil {
		return "", ErrMalformedCredentials
	}
	return match[1], nil
}

// BearerHeader formats token as an Authorization header value.
func BearerHeader(token string) string {
	return "Bearer " + token
}
