// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

// Status codes produced by the dispatcher itself. Methods may return
// any other code through an application error.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusRequestTooLarge     = 413
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
)

// statusText holds the default human-readable message for the
// standard client error codes. An error built without an explicit
// message uses this text.
var statusText = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
}

// StatusText returns the default message for code, or "" if the code
// has no default.
func StatusText(code int) string {
	return statusText[code]
}

// IsSuccess reports whether code denotes a successful call.
func IsSuccess(code int) bool {
	return code < 400
}
