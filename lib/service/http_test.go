// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/testutil"
)

func TestHTTPServerLifecycle(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.Register("test1", test1)

	httpServer := NewHTTPServer(HTTPServerConfig{
		Address:         "127.0.0.1:0",
		Handler:         server.Handler(),
		ShutdownTimeout: 2 * time.Second,
		Logger:          discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- httpServer.Serve(ctx)
	}()
	testutil.RequireClosed(t, httpServer.Ready(), 5*time.Second, "server ready")

	request, err := http.NewRequest(http.MethodPost, "http://"+httpServer.Addr().String()+"/call",
		bytes.NewReader(encodeCall(t, "test1", nil)))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	request.Header.Set("Authorization", "Bearer "+testToken)
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("POST /call: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("POST /call status = %d, want 200", response.StatusCode)
	}
	if contentType := response.Header.Get("Content-Type"); contentType != codec.ContentType {
		t.Errorf("Content-Type = %q, want %q", contentType, codec.ContentType)
	}
	var decoded envelope.Response
	if err := codec.NewDecoder(response.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if !decoded.Success {
		t.Errorf("envelope = %+v, want success", decoded)
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestHTTPServerListenError(t *testing.T) {
	httpServer := NewHTTPServer(HTTPServerConfig{
		Address: "256.0.0.1:0",
		Handler: http.NotFoundHandler(),
		Logger:  discardLogger(),
	})
	if err := httpServer.Serve(context.Background()); err == nil {
		t.Error("Serve on an invalid address returned nil")
	}
}

func TestHTTPServerPanicsOnMissingConfig(t *testing.T) {
	logger := discardLogger()
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{
			name:   "missing_address",
			config: HTTPServerConfig{Handler: handler, Logger: logger},
		},
		{
			name:   "missing_handler",
			config: HTTPServerConfig{Address: ":0", Logger: logger},
		},
		{
			name:   "missing_logger",
			config: HTTPServerConfig{Address: ":0", Handler: handler},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("NewHTTPServer did not panic")
				}
			}()
			NewHTTPServer(tt.config)
		})
	}
}
