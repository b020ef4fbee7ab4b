// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/meridian-foundation/meridian/lib/envelope"
)

// Method handles one named call. The args map is the request's data
// field, never nil.
//
// Return a value for the success envelope (nil, a map, a struct, or a
// scalar that will be wrapped as {output: value}) or an error. Maps
// must have string keys; any other key type fails the call with a 500.
// Empty strings, byte strings and slices are sent as {}, like nil.
// Errors:
//
//   - *Error: the response carries its code and message verbatim.
//   - *ArgumentError: the response is a 400 with the binding problem.
//   - anything else is a fault in the method. It is not converted to
//     an envelope; the request's goroutine panics with a *MethodFault.
type Method func(ctx context.Context, args envelope.Args) (any, error)

// Error is an application error with an explicit status code. Methods
// return it for expected failures that the caller should see.
type Error struct {
	Code    int
	Message string
}

// Errorf returns an *Error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// ArgumentError reports that a request's data could not be bound to a
// method's parameters: an unexpected key, a missing required key, or a
// value of the wrong type.
type ArgumentError struct {
	Method string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s(): %s", e.Method, e.Reason)
}

// MethodFault is the panic value raised when a method returns an error
// that is neither an *Error nor an *ArgumentError.
type MethodFault struct {
	Method string
	Err    error
}

func (f *MethodFault) Error() string {
	return fmt.Sprintf("method %q faulted: %v", f.Method, f.Err)
}

func (f *MethodFault) Unwrap() error {
	return f.Err
}

// paramField describes one bindable field of a parameter struct.
type paramField struct {
	name     string
	required bool
}

// Bind adapts a function taking a parameter struct into a Method. The
// request data is expanded into P as named arguments: each key must
// name a field (by its mapstructure tag, or the field name compared
// case-insensitively), every required field must be present, and each
// value must convert to the field's type. Any violation is returned as
// an *ArgumentError.
//
// A field is optional when it is a pointer or its tag carries
// ",omitempty":
//
//	type test1Params struct {
//		Test any `mapstructure:"test,omitempty"`
//	}
//
// Bind panics if P is not a struct type.
func Bind[P any](name string, fn func(ctx context.Context, params P) (any, error)) Method {
	fields := paramFields(reflect.TypeFor[P]())

	return func(ctx context.Context, args envelope.Args) (any, error) {
		if err := checkArguments(name, fields, args); err != nil {
			return nil, err
		}

		var params P
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &params,
			ErrorUnused: true,
			TagName:     "mapstructure",
			DecodeHook:  mapstructure.DecodeHookFuncType(exactNumber),
		})
		if err != nil {
			return nil, fmt.Errorf("building argument decoder for %s: %w", name, err)
		}
		if err := decoder.Decode(map[string]any(args)); err != nil {
			return nil, &ArgumentError{Method: name, Reason: describeDecodeError(err)}
		}
		return fn(ctx, params)
	}
}

// exactNumber rejects numeric conversions that would change the value.
// mapstructure on its own truncates floats into integer fields and
// wraps integers that overflow the field's width.
func exactNumber(from, to reflect.Type, data any) (any, error) {
	value := reflect.ValueOf(data)
	target := reflect.New(to).Elem()

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if target.OverflowInt(value.Int()) {
				return nil, fmt.Errorf("%d overflows %s", value.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if value.Uint() > math.MaxInt64 || target.OverflowInt(int64(value.Uint())) {
				return nil, fmt.Errorf("%d overflows %s", value.Uint(), to)
			}
		case reflect.Float32, reflect.Float64:
			f := value.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			if f < math.MinInt64 || f >= math.MaxInt64 || target.OverflowInt(int64(f)) {
				return nil, fmt.Errorf("%v overflows %s", f, to)
			}
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if value.Int() < 0 {
				return nil, fmt.Errorf("%d is negative, want %s", value.Int(), to)
			}
			if target.OverflowUint(uint64(value.Int())) {
				return nil, fmt.Errorf("%d overflows %s", value.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if target.OverflowUint(value.Uint()) {
				return nil, fmt.Errorf("%d overflows %s", value.Uint(), to)
			}
		case reflect.Float32, reflect.Float64:
			f := value.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			if f < 0 {
				return nil, fmt.Errorf("%v is negative, want %s", f, to)
			}
			if f >= math.MaxUint64 || target.OverflowUint(uint64(f)) {
				return nil, fmt.Errorf("%v overflows %s", f, to)
			}
		}

	case reflect.Float32:
		if kind := from.Kind(); kind == reflect.Float64 && target.OverflowFloat(value.Float()) {
			return nil, fmt.Errorf("%v overflows %s", value.Float(), to)
		}
	}
	return data, nil
}

// paramFields lists the exported fields of the struct type P.
func paramFields(structType reflect.Type) []paramField {
	if structType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("service.Bind: parameter type %s is not a struct", structType))
	}

	var fields []paramField
	for index := range structType.NumField() {
		field := structType.Field(index)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		omitEmpty := false
		if tag, ok := field.Tag.Lookup("mapstructure"); ok {
			tagName, options, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
			omitEmpty = strings.Contains(","+options+",", ",omitempty,")
		}
		fields = append(fields, paramField{
			name:     name,
			required: !omitEmpty && field.Type.Kind() != reflect.Pointer,
		})
	}
	return fields
}

// checkArguments compares the request keys against the parameter
// fields. mapstructure would report unused keys too, but it does not
// report missing ones, and its messages name Go types rather than
// arguments.
func checkArguments(method string, fields []paramField, args envelope.Args) error {
	var unexpected []string
	for key := range args {
		if !hasField(fields, key) {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return &ArgumentError{
			Method: method,
			Reason: fmt.Sprintf("unexpected argument(s) %s", quoteList(unexpected)),
		}
	}

	var missing []string
	for _, field := range fields {
		if field.required && !hasKey(args, field.name) {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ArgumentError{
			Method: method,
			Reason: fmt.Sprintf("missing required argument(s) %s", quoteList(missing)),
		}
	}
	return nil
}

func hasField(fields []paramField, key string) bool {
	for _, field := range fields {
		if strings.EqualFold(field.name, key) {
			return true
		}
	}
	return false
}

func hasKey(args envelope.Args, name string) bool {
	for key := range args {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return strings.Join(quoted, ", ")
}

// describeDecodeError flattens a mapstructure error into one line.
func describeDecodeError(err error) string {
	if decodeErr, ok := err.(*mapstructure.Error); ok {
		return strings.Join(decodeErr.Errors, "; ")
	}
	return err.Error()
}
