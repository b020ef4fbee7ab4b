// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Meridian is the command-line client for Meridian services: it calls
// and lists service methods through the caller's access file and mints
// tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/cmd/meridian/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := commands.Root(ctx, os.Stdout).Execute(os.Args[1:])
	if err == nil {
		return 0
	}

	// Commands that print their own failure return an ExitError.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		return coder.ExitCode()
	}
	return 1
}
