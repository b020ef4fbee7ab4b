// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
)

// DefaultMaxRequestBytes bounds a /call body when ServerConfig leaves
// MaxRequestBytes zero.
const DefaultMaxRequestBytes = 1 << 20

const tracerName = "github.com/meridian-foundation/meridian/lib/service"

// ServerConfig configures a Server.
type ServerConfig struct {
	// Name identifies the service in logs, spans, and metrics
	// (e.g., "a0-IDAuthDB"). Required.
	Name string

	// Tokens decides whether a bearer token is authorized. It is
	// consulted on every call and must not cache. Required.
	Tokens servicetoken.TokenChecker

	// Logger is the structured logger. Required.
	Logger *slog.Logger

	// ListRequiresAuth applies /call authentication to /list. Off by
	// default: discovery is open.
	ListRequiresAuth bool

	// HandlerTimeout, when positive, is the deadline placed on the
	// context passed to each method. Methods that ignore their
	// context are not interrupted.
	HandlerTimeout time.Duration

	// MaxRequestBytes bounds the /call body. Defaults to
	// DefaultMaxRequestBytes.
	MaxRequestBytes int64

	// Metrics, when non-nil, records every call and exposes /metrics.
	Metrics *Metrics

	// RateLimit, when positive, is the sustained number of /call and
	// /list requests per second the server accepts before answering
	// 429. RateBurst is the bucket size (defaults to 1).
	RateLimit rate.Limit
	RateBurst int

	// Tracer creates a span per call. Defaults to the global otel
	// tracer provider, which is a no-op unless the binary installs one.
	Tracer trace.Tracer
}

// Server owns the method registry and turns /call bodies into
// response envelopes. It is safe for concurrent use; methods are
// normally registered before the HTTP listener starts.
type Server struct {
	name             string
	tokens           servicetoken.TokenChecker
	logger           *slog.Logger
	listRequiresAuth bool
	handlerTimeout   time.Duration
	maxRequestBytes  int64
	metrics          *Metrics
	limiter          *rate.Limiter
	tracer           trace.Tracer

	mu      sync.RWMutex
	methods map[string]Method
}

// NewServer creates a Server with an empty registry.
func NewServer(config ServerConfig) *Server {
	if config.Name == "" {
		panic("service.Server: Name is required")
	}
	if config.Tokens == nil {
		panic("service.Server: Tokens is required")
	}
	if config.Logger == nil {
		panic("service.Server: Logger is required")
	}

	maxRequestBytes := config.MaxRequestBytes
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(config.RateLimit, burst)
	}

	return &Server{
		name:             config.Name,
		tokens:           config.Tokens,
		logger:           config.Logger.With("service", config.Name),
		listRequiresAuth: config.ListRequiresAuth,
		handlerTimeout:   config.HandlerTimeout,
		maxRequestBytes:  maxRequestBytes,
		metrics:          config.Metrics,
		limiter:          limiter,
		tracer:           tracer,
		methods:          make(map[string]Method),
	}
}

// Name returns the service name.
func (s *Server) Name() string {
	return s.name
}

// Register binds name to method. Registering a name again replaces
// the earlier method. Panics on an empty name or nil method.
func (s *Server) Register(name string, method Method) {
	if name == "" {
		panic("service.Server: method name must not be empty")
	}
	if method == nil {
		panic(fmt.Sprintf("service.Server: nil method for %q", name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.methods[name]; exists {
		s.logger.Debug("method re-registered", "method", name)
	}
	s.methods[name] = method
}

// List returns the registered method names in sorted order.
func (s *Server) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) lookup(name string) (Method, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	method, ok := s.methods[name]
	return method, ok
}

// HandleCall runs one /call request: authenticate, decode, validate,
// resolve, invoke, encode. Every expected failure comes back as an
// error envelope. A method fault (see Method) panics out of HandleCall
// after being logged and counted as a 500; the HTTP layer isolates it
// to this request.
func (s *Server) HandleCall(ctx context.Context, body []byte, authorization string) envelope.Response {
	start := time.Now()
	requestID := RequestIDFromContext(ctx)
	ctx, span := s.tracer.Start(ctx, "meridian.call",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "meridian"),
			attribute.String("rpc.service", s.name),
		),
	)
	defer span.End()

	var methodName string
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		span.SetAttributes(
			attribute.String("rpc.method", methodName),
			attribute.Int("rpc.meridian.code", envelope.StatusInternalServerError),
		)
		span.SetStatus(codes.Error, fmt.Sprint(recovered))
		s.metrics.observeCall(s.name, methodName, envelope.StatusInternalServerError, time.Since(start))
		panic(recovered)
	}()

	response := s.dispatch(ctx, body, authorization, requestID, &methodName)

	span.SetAttributes(
		attribute.String("rpc.method", methodName),
		attribute.Int("rpc.meridian.code", response.Code),
	)
	if !response.Success {
		span.SetStatus(codes.Error, response.ErrorMessage())
	}
	s.metrics.observeCall(s.name, methodName, response.Code, time.Since(start))

	s.logger.Debug("call completed",
		"method", methodName,
		"code", response.Code,
		"duration", time.Since(start),
		"request_id", requestID,
	)
	return response
}

// dispatch returns the response envelope, storing the method name in
// resolved once the method is found.
func (s *Server) dispatch(ctx context.Context, body []byte, authorization, requestID string, resolved *string) envelope.Response {
	if failure := s.authenticate(authorization, requestID); failure != nil {
		return *failure
	}

	request, err := envelope.DecodeRequest(body)
	if err != nil {
		var shapeErr *envelope.ShapeError
		if errors.As(err, &shapeErr) {
			return envelope.NewError(envelope.StatusBadRequest, shapeErr.Error())
		}
		return envelope.NewError(envelope.StatusBadRequest, "malformed request encoding")
	}

	method, found := s.lookup(request.Method)
	if !found {
		return envelope.NewErrorf(envelope.StatusNotFound, "unknown method %q", request.Method)
	}
	*resolved = request.Method

	callCtx := ctx
	if s.handlerTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.handlerTimeout)
		defer cancel()
	}

	result, err := s.invoke(callCtx, request.Method, method, request.Data, requestID)
	if err != nil {
		return s.errorResponse(callCtx, request.Method, err, requestID)
	}

	data, err := encodeResult(result)
	if err != nil {
		s.logger.Error("encoding method result",
			"method", request.Method,
			"error", err,
			"request_id", requestID,
		)
		return envelope.NewErrorf(envelope.StatusInternalServerError, "encoding result: %v", err)
	}
	return envelope.NewSuccess(data)
}

// authenticate returns nil if authorization carries a known token,
// otherwise the rejection envelope.
func (s *Server) authenticate(authorization, requestID string) *envelope.Response {
	token, err := servicetoken.ParseBearer(authorization)
	if err != nil {
		code := envelope.StatusBadRequest
		if errors.Is(err, servicetoken.ErrMissingCredentials) {
			code = envelope.StatusUnauthorized
		}
		s.logger.Info("call rejected", "reason", err, "request_id", requestID)
		response := envelope.NewError(code, err.Error())
		return &response
	}

	found, err := s.tokens.Contains(token)
	if err != nil {
		s.logger.Error("token lookup failed", "error", err, "request_id", requestID)
		response := envelope.NewError(envelope.StatusInternalServerError, "token store unavailable")
		return &response
	}
	if !found {
		s.logger.Info("call rejected",
			"reason", "unknown token",
			"token", servicetoken.Fingerprint(token),
			"request_id", requestID,
		)
		response := envelope.NewError(envelope.StatusForbidden, "invalid token")
		return &response
	}
	return nil
}

// invoke calls the method, logging and re-raising any panic so the
// fault is attributed to its method and request before it unwinds.
func (s *Server) invoke(ctx context.Context, name string, method Method, args envelope.Args, requestID string) (any, error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("method panicked",
				"method", name,
				"panic", recovered,
				"request_id", requestID,
			)
			panic(recovered)
		}
	}()
	return method(ctx, args)
}

// errorResponse maps a method's error to an envelope, or panics with a
// *MethodFault for unexpected errors. A nil *Error or *ArgumentError
// boxed in a non-nil error is a fault.
func (s *Server) errorResponse(ctx context.Context, name string, err error, requestID string) envelope.Response {
	var applicationErr *Error
	var argumentErr *ArgumentError
	switch {
	case errors.As(err, &applicationErr) && applicationErr != nil:
		return envelope.NewError(applicationErr.Code, applicationErr.Message)
	case errors.As(err, &argumentErr) && argumentErr != nil:
		return envelope.NewError(envelope.StatusBadRequest, argumentErr.Error())
	case errors.As(err, &applicationErr):
		err = fmt.Errorf("returned a nil %T as its error", applicationErr)
	case errors.As(err, &argumentErr):
		err = fmt.Errorf("returned a nil %T as its error", argumentErr)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// The method gave up because its deadline passed or the
		// caller went away. Not a fault in the method.
		s.logger.Warn("method abandoned",
			"method", name,
			"error", err,
			"request_id", requestID,
		)
		return envelope.NewErrorf(envelope.StatusRequestTimeout, "%s: %v", name, ctx.Err())
	}

	fault := &MethodFault{Method: name, Err: err}
	s.logger.Error("method faulted",
		"method", name,
		"error", err,
		"request_id", requestID,
	)
	panic(fault)
}

// encodeResult turns a method's return value into the data field of a
// success envelope. nil, null and empty strings, byte strings and
// arrays become {}; a map with string keys passes through; any other
// value, 0 and false included, is wrapped as {output: value}.
func encodeResult(result any) (codec.RawMessage, error) {
	if result == nil {
		return nil, nil
	}
	data, err := codec.Marshal(result)
	if err != nil {
		return nil, err
	}

	switch {
	case codec.IsNull(data), codec.IsEmpty(data):
		return nil, nil
	case codec.IsMap(data):
		var check map[string]any
		if err := codec.Unmarshal(data, &check); err != nil {
			return nil, fmt.Errorf("result map keys must be strings: %w", err)
		}
		return data, nil
	}

	return codec.Marshal(map[string]codec.RawMessage{"output": data})
}

// limited reports whether the rate limiter refuses this request.
func (s *Server) limited() bool {
	return s.limiter != nil && !s.limiter.Allow()
}
