// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ContentType is the media type of /call and /list bodies.
const ContentType = "application/cbor"

var (
	// encMode uses Core Deterministic Encoding (RFC 8949 §4.2), so
	// equal values always encode to equal bytes.
	encMode cbor.EncMode

	// decMode decodes untyped maps as map[string]any and ignores
	// unknown struct fields.
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Text marshalers (time.Time among them) encode as text strings.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	if encMode, err = encOptions.EncMode(); err != nil {
		panic("codec: building encoder: " + err.Error())
	}

	// Request and result maps are keyed by strings. A map with any
	// other key type fails to decode into an any-typed target, which
	// the server reports as a malformed request.
	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: building decoder: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Aliases so callers need not import fxamacker/cbor.
type (
	Encoder    = cbor.Encoder
	Decoder    = cbor.Decoder
	RawMessage = cbor.RawMessage
)

// NewEncoder returns a deterministic stream encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

const (
	majorTypeMap    = 5
	emptyByteString = 0x40
	emptyTextString = 0x60
	emptyArray      = 0x80
	simpleNull      = 0xf6
	simpleUndefined = 0xf7
)

// IsMap reports whether the encoded item in data is a map.
func IsMap(data []byte) bool {
	return len(data) > 0 && data[0]>>5 == majorTypeMap
}

// IsNull reports whether data is exactly CBOR null or undefined.
func IsNull(data []byte) bool {
	return len(data) == 1 && (data[0] == simpleNull || data[0] == simpleUndefined)
}

// IsEmpty reports whether data is exactly an empty byte string, text
// string or array.
func IsEmpty(data []byte) bool {
	if len(data) != 1 {
		return false
	}
	switch data[0] {
	case emptyByteString, emptyTextString, emptyArray:
		return true
	}
	return false
}
