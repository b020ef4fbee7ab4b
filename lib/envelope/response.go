// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"fmt"

	"github.com/meridian-foundation/meridian/lib/codec"
)

// Response is the body of every /call response and of every transport
// failure the HTTP layer reports.
//
// Data carries the pre-encoded result map of a successful call. Error
// is a pointer so that a failure with an unknown code still carries an
// (empty) error field on the wire while a success carries none.
type Response struct {
	Success bool             `cbor:"success"`
	Code    int              `cbor:"code"`
	Data    codec.RawMessage `cbor:"data,omitempty"`
	Error   *string          `cbor:"error,omitempty"`
}

// emptyMap is the CBOR encoding of {}.
var emptyMap = codec.RawMessage{0xa0}

// NewError builds an error envelope. Success is derived from code.
// For codes below 400 an empty message produces no error field; for
// codes of 400 and above the error field is message, or the default
// text for code when message is empty ("" for codes without one).
func NewError(code int, message string) Response {
	response := Response{Success: IsSuccess(code), Code: code}
	if message == "" && response.Success {
		return response
	}
	if message == "" {
		message = StatusText(code)
	}
	response.Error = &message
	return response
}

// NewErrorf is NewError with a formatted message.
func NewErrorf(code int, format string, args ...any) Response {
	return NewError(code, fmt.Sprintf(format, args...))
}

// NewSuccess builds a 200 envelope around an encoded result map. A nil
// data value becomes an empty map.
func NewSuccess(data codec.RawMessage) Response {
	if len(data) == 0 {
		data = emptyMap
	}
	return Response{Success: true, Code: StatusOK, Data: data}
}

// ErrorMessage returns the error text, or "" when the envelope has no
// error field.
func (r Response) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Encode marshals the response envelope.
func (r Response) Encode() ([]byte, error) {
	return codec.Marshal(r)
}

// DecodeData decodes the result map. A response without data (any
// failure) yields a nil map.
func (r Response) DecodeData() (map[string]any, error) {
	if len(r.Data) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := codec.Unmarshal(r.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding response data: %w", err)
	}
	return data, nil
}

// DecodeResponse decodes a response envelope.
func DecodeResponse(body []byte) (Response, error) {
	var response Response
	if err := codec.Unmarshal(body, &response); err != nil {
		return Response{}, fmt.Errorf("decoding response envelope: %w", err)
	}
	return response, nil
}
