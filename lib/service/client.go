// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/netutil"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
	"github.com/meridian-foundation/meridian/lib/version"
)

// CallTimeout bounds every outbound request, discovery included. There
// is no retry: a call that times out returns an error.
const CallTimeout = 10 * time.Second

// maxResponseSize bounds a response body read by the client.
const maxResponseSize = 16 << 20

// DefaultHost is where services listen unless configured otherwise.
const DefaultHost = "127.0.0.1"

// ErrUnknownService is returned without any network I/O when a service
// id has no entry in the access file.
var ErrUnknownService = errors.New("service not in access file")

// UnknownMethodError is returned by ServiceClient.Call, without any
// network I/O, when discovery ran and the method was not listed.
type UnknownMethodError struct {
	Service string
	Method  string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("service %s has no method %q", e.Service, e.Method)
}

// Result is the decoded response envelope of one call. Callers branch
// on Success: Data holds the result map on success, Error the message
// on failure.
type Result struct {
	Code      int
	Success   bool
	Data      map[string]any
	Error     string
	RequestID string
}

// Client resolves service ids to an address and token from an access
// file and creates ServiceClients for them.
type Client struct {
	host       string
	httpClient *http.Client
	logger     *slog.Logger
	services   map[string]servicetoken.AccessEntry
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHost sets the host services are reached on. Defaults to
// DefaultHost.
func WithHost(host string) ClientOption {
	return func(c *Client) { c.host = host }
}

// WithHTTPClient replaces the HTTP client. Its own Timeout, if any,
// applies in addition to CallTimeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger for call diagnostics. Defaults to a
// logger that discards everything.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient loads accessFile and returns a Client for the services it
// lists. Any malformed line is an error.
func NewClient(accessFile string, options ...ClientOption) (*Client, error) {
	services, err := servicetoken.LoadAccessFile(accessFile)
	if err != nil {
		return nil, err
	}
	client := &Client{
		host:       DefaultHost,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
		services:   services,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Services returns the ids in the access file, sorted.
func (c *Client) Services() []string {
	ids := make([]string, 0, len(c.services))
	for id := range c.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Service returns a ServiceClient for id after discovering its methods
// with one /list request. The method list is never refreshed; create a
// new ServiceClient to see methods registered later.
func (c *Client) Service(ctx context.Context, id string) (*ServiceClient, error) {
	service, err := c.bind(id)
	if err != nil {
		return nil, err
	}
	if err := service.discover(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

// CallService calls one method without discovery, saving the /list
// round trip.
func (c *Client) CallService(ctx context.Context, id, method string, args envelope.Args) (Result, error) {
	service, err := c.bind(id)
	if err != nil {
		return Result{}, err
	}
	return service.Call(ctx, method, args)
}

func (c *Client) bind(id string) (*ServiceClient, error) {
	entry, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	return &ServiceClient{
		service:    id,
		baseURL:    "http://" + net.JoinHostPort(c.host, strconv.Itoa(entry.Port)),
		token:      entry.Token,
		httpClient: c.httpClient,
		logger:     c.logger.With("service", id),
	}, nil
}

// ServiceClient issues calls to one service. A ServiceClient created
// by Client.Service carries the method list fetched at creation; one
// created by Client.CallService does not, and lets the server decide
// whether a method exists.
type ServiceClient struct {
	service    string
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// methods is nil until discovery runs.
	methods map[string]bool
}

// Stub calls one method of a service.
type Stub func(ctx context.Context, args envelope.Args) (Result, error)

// Service returns the service id.
func (s *ServiceClient) Service() string {
	return s.service
}

// Methods returns the discovered method names, sorted, or nil if this
// client did not run discovery.
func (s *ServiceClient) Methods() []string {
	if s.methods == nil {
		return nil
	}
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stubs returns a callable per discovered method.
func (s *ServiceClient) Stubs() map[string]Stub {
	stubs := make(map[string]Stub, len(s.methods))
	for name := range s.methods {
		stubs[name] = func(ctx context.Context, args envelope.Args) (Result, error) {
			return s.Call(ctx, name, args)
		}
	}
	return stubs
}

// Call invokes method with args (nil is sent as an empty map). Any
// envelope the server returns, success or failure, comes back as a
// Result with a nil error; the error return is for local and transport
// failures only.
func (s *ServiceClient) Call(ctx context.Context, method string, args envelope.Args) (Result, error) {
	if s.methods != nil && !s.methods[method] {
		return Result{}, &UnknownMethodError{Service: s.service, Method: method}
	}

	body, err := envelope.Request{Method: method, Data: args}.Encode()
	if err != nil {
		return Result{}, fmt.Errorf("encoding call to %s.%s: %w", s.service, method, err)
	}

	requestID := NewRequestID()
	data, status, err := s.roundTrip(ctx, http.MethodPost, "/call", body, requestID)
	if err != nil {
		return Result{}, fmt.Errorf("calling %s.%s: %w", s.service, method, err)
	}

	response, err := envelope.DecodeResponse(data)
	if err != nil {
		return Result{}, fmt.Errorf("calling %s.%s: HTTP %d: %w", s.service, method, status, err)
	}
	result := Result{
		Code:      response.Code,
		Success:   response.Success,
		Error:     response.ErrorMessage(),
		RequestID: requestID,
	}
	if result.Data, err = response.DecodeData(); err != nil {
		return Result{}, fmt.Errorf("calling %s.%s: %w", s.service, method, err)
	}

	s.logger.Debug("call returned",
		"method", method,
		"code", result.Code,
		"request_id", requestID,
	)
	return result, nil
}

// discover fetches /list. A server that requires authentication for
// /list answers with an error envelope instead of an array; that is
// reported as an error carrying the envelope's code and message.
func (s *ServiceClient) discover(ctx context.Context) error {
	data, status, err := s.roundTrip(ctx, http.MethodGet, "/list", nil, NewRequestID())
	if err != nil {
		return fmt.Errorf("discovering methods of %s: %w", s.service, err)
	}

	var names []string
	if err := codec.Unmarshal(data, &names); err != nil {
		if response, envelopeErr := envelope.DecodeResponse(data); envelopeErr == nil && !response.Success {
			return fmt.Errorf("discovering methods of %s: code %d: %s", s.service, response.Code, response.ErrorMessage())
		}
		return fmt.Errorf("discovering methods of %s: HTTP %d: decoding method list: %w", s.service, status, err)
	}

	s.methods = make(map[string]bool, len(names))
	for _, name := range names {
		s.methods[name] = true
	}
	s.logger.Debug("discovered methods", "count", len(names))
	return nil
}

// roundTrip sends one request under CallTimeout and returns the body
// and HTTP status. Responses that are not CBOR (a proxy error page, for
// instance) are turned into errors quoting the body.
func (s *ServiceClient) roundTrip(ctx context.Context, httpMethod, path string, body []byte, requestID string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, httpMethod, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", codec.ContentType)
	}
	request.Header.Set("Accept", codec.ContentType)
	request.Header.Set("Authorization", servicetoken.BearerHeader(s.token))
	request.Header.Set(RequestIDHeader, requestID)
	request.Header.Set("User-Agent", version.UserAgent("meridian-client"))

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, 0, err
	}
	defer response.Body.Close()

	if mediaType := response.Header.Get("Content-Type"); mediaType != codec.ContentType {
		return nil, response.StatusCode, fmt.Errorf("HTTP %d with content type %q: %s",
			response.StatusCode, mediaType, netutil.ErrorBody(response.Body))
	}

	data, err := netutil.ReadBody(response.Body, maxResponseSize)
	if err != nil {
		return nil, response.StatusCode, err
	}
	return data, response.StatusCode, nil
}
