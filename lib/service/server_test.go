// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
	"github.com/meridian-foundation/meridian/lib/testutil"
)

const testToken = "test-token_0123456789"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer returns a server whose token file holds testToken.
// modify, if non-nil, adjusts the config before the server is built.
func newTestServer(t *testing.T, modify func(*ServerConfig)) (*Server, string) {
	t.Helper()
	tokenPath := testutil.WriteFile(t, "tokens", testToken)
	store, err := servicetoken.NewFileStore(tokenPath)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	config := ServerConfig{
		Name:   "a0-Test",
		Tokens: store,
		Logger: discardLogger(),
	}
	if modify != nil {
		modify(&config)
	}
	return NewServer(config), tokenPath
}

// encodeCall builds a /call body. A nil data leaves the field out.
func encodeCall(t *testing.T, method string, data any) []byte {
	t.Helper()
	request := map[string]any{"method": method}
	switch value := data.(type) {
	case nil:
	case map[string]any:
		if value != nil {
			request["data"] = value
		}
	default:
		request["data"] = data
	}
	body, err := codec.Marshal(request)
	if err != nil {
		t.Fatalf("encoding call: %v", err)
	}
	return body
}

func responseData(t *testing.T, response envelope.Response) map[string]any {
	t.Helper()
	data, err := response.DecodeData()
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	return data
}

// test1 returns "hi", or a 499 when the test argument is truthy.
func test1(ctx context.Context, args envelope.Args) (any, error) {
	if value, ok := args["test"]; ok && value != nil && value != false {
		return nil, &Error{Code: 499, Message: "my custom error"}
	}
	return "hi", nil
}

func TestRegisterAndList(t *testing.T) {
	server, _ := newTestServer(t, nil)
	noop := func(context.Context, envelope.Args) (any, error) { return nil, nil }

	server.Register("zeta", noop)
	server.Register("alpha", noop)
	server.Register("mid", noop)
	server.Register("alpha", noop)

	names := server.List()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("version", func(context.Context, envelope.Args) (any, error) { return 1, nil })
	server.Register("version", func(context.Context, envelope.Args) (any, error) { return 2, nil })

	response := server.HandleCall(context.Background(), encodeCall(t, "version", map[string]any{}), "Bearer "+testToken)
	if got := responseData(t, response)["output"]; got != uint64(2) {
		t.Errorf("output = %#v, want 2 from the second registration", got)
	}
}

func TestRegisterPanics(t *testing.T) {
	server, _ := newTestServer(t, nil)
	noop := func(context.Context, envelope.Args) (any, error) { return nil, nil }

	tests := []struct {
		name     string
		register func()
	}{
		{name: "empty_name", register: func() { server.Register("", noop) }},
		{name: "nil_method", register: func() { server.Register("x", nil) }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Register did not panic")
				}
			}()
			test.register()
		})
	}
}

func TestNewServerPanicsOnMissingConfig(t *testing.T) {
	store, err := servicetoken.NewFileStore(testutil.WriteFile(t, "tokens"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	logger := discardLogger()

	tests := []struct {
		name   string
		config ServerConfig
	}{
		{name: "missing_name", config: ServerConfig{Tokens: store, Logger: logger}},
		{name: "missing_tokens", config: ServerConfig{Name: "a0-x", Logger: logger}},
		{name: "missing_logger", config: ServerConfig{Name: "a0-x", Tokens: store}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("NewServer did not panic")
				}
			}()
			NewServer(test.config)
		})
	}
}

func TestHandleCallAuthentication(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("test1", test1)
	body := encodeCall(t, "test1", map[string]any{})

	tests := []struct {
		name          string
		authorization string
		wantCode      int
	}{
		{name: "missing_header", authorization: "", wantCode: 401},
		{name: "wrong_scheme", authorization: "Token " + testToken, wantCode: 400},
		{name: "invalid_characters", authorization: "Bearer not/a/token", wantCode: 400},
		{name: "unknown_token", authorization: "Bearer someone-else", wantCode: 403},
		{name: "valid_token", authorization: "Bearer " + testToken, wantCode: 200},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := server.HandleCall(context.Background(), body, test.authorization)
			if response.Code != test.wantCode {
				t.Errorf("Code = %d, want %d (error %q)", response.Code, test.wantCode, response.ErrorMessage())
			}
			if response.Success != (test.wantCode < 400) {
				t.Errorf("Success = %v for code %d", response.Success, response.Code)
			}
		})
	}
}

func TestHandleCallAuthenticatesBeforeDecoding(t *testing.T) {
	server, _ := newTestServer(t, nil)
	response := server.HandleCall(context.Background(), []byte{0xff, 0xff}, "")
	if response.Code != 401 {
		t.Errorf("Code = %d, want 401 for garbage body without credentials", response.Code)
	}
}

func TestHandleCallSeesTokenFileChanges(t *testing.T) {
	server, tokenPath := newTestServer(t, nil)
	server.Register("test1", test1)
	body := encodeCall(t, "test1", map[string]any{})

	const rotated = "rotated-token"
	if response := server.HandleCall(context.Background(), body, "Bearer "+rotated); response.Code != 403 {
		t.Fatalf("Code = %d before rotation, want 403", response.Code)
	}

	if err := os.WriteFile(tokenPath, []byte(rotated+"\n"), 0o600); err != nil {
		t.Fatalf("rewriting token file: %v", err)
	}

	if response := server.HandleCall(context.Background(), body, "Bearer "+rotated); response.Code != 200 {
		t.Errorf("Code = %d after adding token, want 200", response.Code)
	}
	if response := server.HandleCall(context.Background(), body, "Bearer "+testToken); response.Code != 403 {
		t.Errorf("Code = %d for removed token, want 403", response.Code)
	}
}

func TestHandleCallRequestValidation(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("test1", test1)

	mustEncode := func(value any) []byte {
		data, err := codec.Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return data
	}

	tests := []struct {
		name     string
		body     []byte
		wantCode int
	}{
		{name: "malformed_cbor", body: []byte{0xff, 0x00}, wantCode: 400},
		{name: "empty_body", body: nil, wantCode: 400},
		{name: "top_level_array", body: mustEncode([]any{"test1"}), wantCode: 400},
		{name: "empty_method", body: encodeCall(t, "", map[string]any{}), wantCode: 400},
		{name: "data_not_map", body: encodeCall(t, "test1", []any{1}), wantCode: 400},
		{name: "data_scalar", body: encodeCall(t, "test1", "x"), wantCode: 400},
		{name: "unknown_method", body: encodeCall(t, "nope", map[string]any{}), wantCode: 404},
		{name: "missing_data", body: mustEncode(map[string]any{"method": "test1"}), wantCode: 200},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := server.HandleCall(context.Background(), test.body, "Bearer "+testToken)
			if response.Code != test.wantCode {
				t.Errorf("Code = %d, want %d (error %q)", response.Code, test.wantCode, response.ErrorMessage())
			}
		})
	}
}

func TestHandleCallApplicationError(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("test1", test1)
	server.Register("explicit", func(context.Context, envelope.Args) (any, error) {
		return nil, &Error{Code: 499, Message: "x"}
	})
	server.Register("wrapped", func(context.Context, envelope.Args) (any, error) {
		return nil, errors.Join(errors.New("context"), &Error{Code: 409, Message: "conflict"})
	})
	server.Register("default_message", func(context.Context, envelope.Args) (any, error) {
		return nil, &Error{Code: 418}
	})

	tests := []struct {
		name        string
		method      string
		data        map[string]any
		wantCode    int
		wantMessage string
	}{
		{name: "explicit", method: "explicit", wantCode: 499, wantMessage: "x"},
		{name: "custom_error", method: "test1", data: map[string]any{"test": true}, wantCode: 499, wantMessage: "my custom error"},
		{name: "wrapped", method: "wrapped", wantCode: 409, wantMessage: "conflict"},
		{name: "default_message", method: "default_message", wantCode: 418, wantMessage: "I'm a teapot"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := server.HandleCall(context.Background(), encodeCall(t, test.method, test.data), "Bearer "+testToken)
			if response.Success {
				t.Error("Success = true, want false")
			}
			if response.Code != test.wantCode {
				t.Errorf("Code = %d, want %d", response.Code, test.wantCode)
			}
			if response.ErrorMessage() != test.wantMessage {
				t.Errorf("Error = %q, want %q", response.ErrorMessage(), test.wantMessage)
			}
			if response.Data != nil {
				t.Errorf("Data = %x, want none on failure", response.Data)
			}
		})
	}
}

func TestHandleCallResultEncoding(t *testing.T) {
	type user struct {
		ID   int    `cbor:"id"`
		Name string `cbor:"name"`
	}
	var nilMap map[string]any

	tests := []struct {
		name   string
		result any
		want   map[string]any
	}{
		{name: "nil", result: nil, want: map[string]any{}},
		{name: "nil_map", result: nilMap, want: map[string]any{}},
		{name: "empty_map", result: map[string]any{}, want: map[string]any{}},
		{name: "scalar", result: 7, want: map[string]any{"output": uint64(7)}},
		{name: "zero", result: 0, want: map[string]any{"output": uint64(0)}},
		{name: "false", result: false, want: map[string]any{"output": false}},
		{name: "string", result: "hi", want: map[string]any{"output": "hi"}},
		{name: "empty_string", result: "", want: map[string]any{}},
		{name: "empty_bytes", result: []byte{}, want: map[string]any{}},
		{name: "empty_list", result: []string{}, want: map[string]any{}},
		{name: "empty_array", result: [0]int{}, want: map[string]any{}},
		{name: "list", result: []string{"a"}, want: map[string]any{"output": []any{"a"}}},
		{name: "map", result: map[string]any{"a": "b"}, want: map[string]any{"a": "b"}},
		{name: "struct", result: user{ID: 3, Name: "ada"}, want: map[string]any{"id": uint64(3), "name": "ada"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server, _ := newTestServer(t, nil)
			server.Register("m", func(context.Context, envelope.Args) (any, error) { return test.result, nil })

			response := server.HandleCall(context.Background(), encodeCall(t, "m", nil), "Bearer "+testToken)
			if !response.Success || response.Code != 200 {
				t.Fatalf("response = %+v, want success 200", response)
			}
			if response.Error != nil {
				t.Errorf("Error = %q, want no error field", *response.Error)
			}
			if got := responseData(t, response); !reflect.DeepEqual(got, test.want) {
				t.Errorf("data = %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestHandleCallUnencodableResult(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("channel", func(context.Context, envelope.Args) (any, error) { return make(chan int), nil })
	server.Register("int_keys", func(context.Context, envelope.Args) (any, error) { return map[int]string{1: "a"}, nil })

	tests := []struct {
		method      string
		wantMessage string
	}{
		{method: "channel", wantMessage: "encoding result"},
		{method: "int_keys", wantMessage: "result map keys must be strings"},
	}
	for _, test := range tests {
		t.Run(test.method, func(t *testing.T) {
			response := server.HandleCall(context.Background(), encodeCall(t, test.method, nil), "Bearer "+testToken)
			if response.Code != 500 || response.Success {
				t.Errorf("response = code %d success %v, want 500 failure", response.Code, response.Success)
			}
			if !strings.Contains(response.ErrorMessage(), test.wantMessage) {
				t.Errorf("Error = %q, want it to contain %q", response.ErrorMessage(), test.wantMessage)
			}
		})
	}
}

func TestHandleCallArgumentError(t *testing.T) {
	type greetParams struct {
		Name string `mapstructure:"name"`
	}
	server, _ := newTestServer(t, nil)
	server.Register("greet", Bind("greet", func(_ context.Context, params greetParams) (any, error) {
		return "hello " + params.Name, nil
	}))

	tests := []struct {
		name     string
		data     map[string]any
		wantCode int
	}{
		{name: "bound", data: map[string]any{"name": "ada"}, wantCode: 200},
		{name: "unexpected", data: map[string]any{"name": "ada", "age": 3}, wantCode: 400},
		{name: "missing", data: map[string]any{}, wantCode: 400},
		{name: "wrong_type", data: map[string]any{"name": []any{1}}, wantCode: 400},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := server.HandleCall(context.Background(), encodeCall(t, "greet", test.data), "Bearer "+testToken)
			if response.Code != test.wantCode {
				t.Errorf("Code = %d, want %d (error %q)", response.Code, test.wantCode, response.ErrorMessage())
			}
			if test.wantCode == 400 && !strings.Contains(response.ErrorMessage(), "greet()") {
				t.Errorf("Error = %q, want the binding description", response.ErrorMessage())
			}
		})
	}
}

func TestHandleCallFaultPanics(t *testing.T) {
	cause := errors.New("database exploded")
	server, _ := newTestServer(t, nil)
	server.Register("fault", func(context.Context, envelope.Args) (any, error) { return nil, cause })
	server.Register("panics", func(context.Context, envelope.Args) (any, error) { panic("index out of range") })

	t.Run("unhandled_error", func(t *testing.T) {
		defer func() {
			recovered := recover()
			fault, ok := recovered.(*MethodFault)
			if !ok {
				t.Fatalf("recovered %#v, want *MethodFault", recovered)
			}
			if fault.Method != "fault" || !errors.Is(fault, cause) {
				t.Errorf("fault = %+v, want method fault wrapping the cause", fault)
			}
		}()
		server.HandleCall(context.Background(), encodeCall(t, "fault", nil), "Bearer "+testToken)
		t.Error("HandleCall returned instead of panicking")
	})

	t.Run("method_panic", func(t *testing.T) {
		defer func() {
			if recovered := recover(); recovered != "index out of range" {
				t.Errorf("recovered %#v, want the method's own panic value", recovered)
			}
		}()
		server.HandleCall(context.Background(), encodeCall(t, "panics", nil), "Bearer "+testToken)
		t.Error("HandleCall returned instead of panicking")
	})

	server.Register("nil_error", func(context.Context, envelope.Args) (any, error) {
		var err *Error
		return nil, err
	})
	server.Register("nil_argument_error", func(context.Context, envelope.Args) (any, error) {
		var err *ArgumentError
		return nil, err
	})
	for _, method := range []string{"nil_error", "nil_argument_error"} {
		t.Run(method, func(t *testing.T) {
			defer func() {
				recovered := recover()
				fault, ok := recovered.(*MethodFault)
				if !ok {
					t.Fatalf("recovered %#v, want *MethodFault", recovered)
				}
				if fault.Method != method || !strings.Contains(fault.Error(), "returned a nil") {
					t.Errorf("fault = %v, want a nil-error fault from %s", fault, method)
				}
			}()
			server.HandleCall(context.Background(), encodeCall(t, method, nil), "Bearer "+testToken)
			t.Error("HandleCall returned instead of panicking")
		})
	}
}

// recordingSpan keeps the status set on it.
type recordingSpan struct {
	noop.Span
	code        codes.Code
	description string
	attributes  []attribute.KeyValue
	ended       bool
}

func (s *recordingSpan) SetStatus(code codes.Code, description string) {
	s.code = code
	s.description = description
}

func (s *recordingSpan) SetAttributes(attributes ...attribute.KeyValue) {
	s.attributes = append(s.attributes, attributes...)
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (r *recordingTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordingSpan{}
	r.spans = append(r.spans, span)
	return trace.ContextWithSpan(ctx, span), span
}

func TestHandleCallSpanStatus(t *testing.T) {
	tracer := &recordingTracer{}
	server, _ := newTestServer(t, func(config *ServerConfig) {
		config.Tracer = tracer
	})
	server.Register("test1", test1)
	server.Register("fault", func(context.Context, envelope.Args) (any, error) {
		return nil, errors.New("disk gone")
	})

	server.HandleCall(context.Background(), encodeCall(t, "test1", nil), "Bearer "+testToken)
	server.HandleCall(context.Background(), encodeCall(t, "test1", map[string]any{"test": true}), "Bearer "+testToken)
	func() {
		defer func() { recover() }()
		server.HandleCall(context.Background(), encodeCall(t, "fault", nil), "Bearer "+testToken)
	}()

	if len(tracer.spans) != 3 {
		t.Fatalf("spans = %d, want 3", len(tracer.spans))
	}
	for i, span := range tracer.spans {
		if !span.ended {
			t.Errorf("span %d was not ended", i)
		}
	}
	if tracer.spans[0].code != codes.Unset {
		t.Errorf("success span status = %v, want unset", tracer.spans[0].code)
	}
	if tracer.spans[1].code != codes.Error || tracer.spans[1].description != "my custom error" {
		t.Errorf("error span status = %v %q, want error with the message", tracer.spans[1].code, tracer.spans[1].description)
	}

	faulted := tracer.spans[2]
	if faulted.code != codes.Error || !strings.Contains(faulted.description, "disk gone") {
		t.Errorf("fault span status = %v %q, want error naming the cause", faulted.code, faulted.description)
	}
	if !slices.Contains(faulted.attributes, attribute.String("rpc.method", "fault")) {
		t.Errorf("fault span attributes = %v, want rpc.method=fault", faulted.attributes)
	}
	if !slices.Contains(faulted.attributes, attribute.Int("rpc.meridian.code", 500)) {
		t.Errorf("fault span attributes = %v, want rpc.meridian.code=500", faulted.attributes)
	}
}

func TestHandleCallHandlerTimeout(t *testing.T) {
	server, _ := newTestServer(t, func(config *ServerConfig) {
		config.HandlerTimeout = 10 * time.Millisecond
	})
	server.Register("wait", func(ctx context.Context, _ envelope.Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	server.Register("quick", func(ctx context.Context, _ envelope.Args) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, &Error{Code: 500, Message: "no deadline on handler context"}
		}
		return nil, nil
	})

	response := server.HandleCall(context.Background(), encodeCall(t, "wait", nil), "Bearer "+testToken)
	if response.Code != 408 {
		t.Errorf("wait: Code = %d, want 408 (error %q)", response.Code, response.ErrorMessage())
	}

	response = server.HandleCall(context.Background(), encodeCall(t, "quick", nil), "Bearer "+testToken)
	if response.Code != 200 {
		t.Errorf("quick: Code = %d, want 200 (error %q)", response.Code, response.ErrorMessage())
	}
}

func TestHandleCallPassesRequestID(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("whoami", func(ctx context.Context, _ envelope.Args) (any, error) {
		return RequestIDFromContext(ctx), nil
	})

	ctx := WithRequestID(context.Background(), "req-42")
	response := server.HandleCall(ctx, encodeCall(t, "whoami", nil), "Bearer "+testToken)
	if got := responseData(t, response)["output"]; got != "req-42" {
		t.Errorf("output = %#v, want req-42", got)
	}
}

func TestListContainsEachMethodOnce(t *testing.T) {
	server, _ := newTestServer(t, nil)
	noop := func(context.Context, envelope.Args) (any, error) { return nil, nil }

	var registered []string
	for range 20 {
		name := testutil.UniqueID("method")
		registered = append(registered, name)
		server.Register(name, noop)
	}
	server.Register(registered[3], noop)

	names := server.List()
	for _, name := range registered {
		count := 0
		for _, listed := range names {
			if listed == name {
				count++
			}
		}
		if count != 1 {
			t.Errorf("method %q listed %d times, want 1", name, count)
		}
	}
	if !slices.IsSorted(names) {
		t.Errorf("List() = %v, want sorted", names)
	}
}
