// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/meridian-foundation/meridian/lib/config"
	"github.com/meridian-foundation/meridian/lib/service"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
)

// newServer builds the service from its config section and registers
// its methods.
func newServer(serviceConfig config.ServiceConfig, logger *slog.Logger) (*service.Server, error) {
	tokens, err := servicetoken.NewFileStore(serviceConfig.TokensFile)
	if err != nil {
		return nil, fmt.Errorf("opening token file: %w", err)
	}

	var metrics *service.Metrics
	if serviceConfig.Metrics {
		metrics = service.NewMetrics()
	}

	server := service.NewServer(service.ServerConfig{
		Name:             serviceConfig.Name,
		Tokens:           tokens,
		Logger:           logger,
		ListRequiresAuth: serviceConfig.ListRequiresAuth,
		HandlerTimeout:   serviceConfig.HandlerTimeout,
		MaxRequestBytes:  serviceConfig.MaxRequestBytes,
		Metrics:          metrics,
		RateLimit:        rate.Limit(serviceConfig.RateLimit),
		RateBurst:        serviceConfig.RateBurst,
	})

	methods := &testMethods{
		server:    server,
		now:       time.Now,
		startedAt: time.Now(),
	}
	server.Register("status", service.Bind("status", methods.status))
	server.Register("test1", service.Bind("test1", methods.test1))
	return server, nil
}

type testMethods struct {
	server    *service.Server
	now       func() time.Time
	startedAt time.Time
}

// statusResult is the result of "status". It encodes as a map, so the
// fields are the response data directly.
type statusResult struct {
	Service       string  `cbor:"service"`
	UptimeSeconds float64 `cbor:"uptime_seconds"`
	Methods       int     `cbor:"methods"`
}

func (m *testMethods) status(context.Context, struct{}) (any, error) {
	return statusResult{
		Service:       m.server.Name(),
		UptimeSeconds: m.now().Sub(m.startedAt).Seconds(),
		Methods:       len(m.server.List()),
	}, nil
}

type test1Params struct {
	Test any `mapstructure:"test,omitempty"`
}

func (m *testMethods) test1(_ context.Context, params test1Params) (any, error) {
	if truthy(params.Test) {
		return nil, &service.Error{Code: 499, Message: "my custom error"}
	}
	return "hi", nil
}

// truthy reports whether value counts as set: anything but absent,
// null, false, zero, or empty.
func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case uint64:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	default:
		return true
	}
}
