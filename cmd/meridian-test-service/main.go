// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Meridian-test-service hosts a Meridian service for integration
// testing. It loads the service section of the config file, serves
// /call and /list (and /metrics when enabled) with token
// authentication, and shuts down cleanly on SIGINT or SIGTERM.
//
// It exposes two methods:
//   - status: uptime, service name and method count
//   - test1: returns "hi", or fails with code 499 "my custom error"
//     when called with a truthy "test" argument
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-foundation/meridian/lib/config"
	"github.com/meridian-foundation/meridian/lib/process"
	"github.com/meridian-foundation/meridian/lib/service"
	"github.com/meridian-foundation/meridian/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		port        int
		showVersion bool
		verbose     bool
	)

	flagSet := pflag.NewFlagSet("meridian-test-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.IntVar(&port, "port", -1, "listen port (overrides config; 0 picks a free port)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every call at debug level")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("meridian-test-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port >= 0 {
		cfg.Service.Port = port
	}
	if err := cfg.ValidateService(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := newServer(cfg.Service, logger)
	if err != nil {
		return err
	}
	return serve(ctx, server, cfg.Service, logger, nil)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// serve runs the HTTP server until ctx is cancelled. ready, when not
// nil, receives the bound address once the listener is up.
func serve(ctx context.Context, server *service.Server, serviceConfig config.ServiceConfig, logger *slog.Logger, ready chan<- string) error {
	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         serviceConfig.Address(),
		Handler:         server.Handler(),
		ShutdownTimeout: serviceConfig.ShutdownTimeout,
		Logger:          logger,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return httpServer.Serve(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-httpServer.Ready():
		case <-groupCtx.Done():
			return nil
		}
		address := httpServer.Addr().String()
		logger.Info("test service running",
			"service", server.Name(),
			"address", address,
			"methods", server.List(),
		)
		if ready != nil {
			ready <- address
		}
		return nil
	})

	err := group.Wait()
	logger.Info("shutting down", "service", server.Name())
	return err
}
