// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"fmt"

	"github.com/meridian-foundation/meridian/lib/codec"
)

// Args holds a method's named arguments, keyed by argument name.
type Args = map[string]any

// Request is the body of a /call request.
type Request struct {
	Method string `cbor:"method"`
	Data   Args   `cbor:"data"`
}

// ErrMalformed is wrapped by [DecodeRequest] when the body is not
// valid CBOR.
var ErrMalformed = errors.New("malformed request encoding")

// ShapeError reports a request that decoded as CBOR but is not a
// well-formed envelope.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "invalid request: " + e.Reason
}

// Encode marshals the request. A nil Data map is sent as an empty map
// so the server always sees a mapping.
func (r Request) Encode() ([]byte, error) {
	if r.Data == nil {
		r.Data = Args{}
	}
	return codec.Marshal(r)
}

// DecodeRequest decodes and validates a /call body. Decoding happens
// into a generic value first so that type problems (a numeric method
// name, a list where data belongs) surface as a *ShapeError instead of
// a decoder error.
//
// A missing data field is treated as an empty argument map. An
// explicit null or any non-map value is rejected.
func DecodeRequest(body []byte) (Request, error) {
	var raw any
	if err := codec.Unmarshal(body, &raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return Request{}, &ShapeError{Reason: fmt.Sprintf("request must be a map, got %s", typeName(raw))}
	}

	method, ok := fields["method"].(string)
	if !ok {
		return Request{}, &ShapeError{Reason: "method must be a string"}
	}
	if method == "" {
		return Request{}, &ShapeError{Reason: "method must not be empty"}
	}

	request := Request{Method: method, Data: Args{}}
	if value, present := fields["data"]; present {
		data, ok := value.(map[string]any)
		if !ok {
			return Request{}, &ShapeError{Reason: fmt.Sprintf("data must be a map, got %s", typeName(value))}
		}
		request.Data = data
	}
	return request, nil
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case uint64, int64:
		return "integer"
	case float32, float64:
		return "float"
	case []byte:
		return "bytes"
	case []any:
		return "array"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", value)
	}
}
