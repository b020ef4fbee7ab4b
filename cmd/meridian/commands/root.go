// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/version"
)

// Root builds the complete meridian command tree. Commands write their
// results to stdout and honour ctx for cancellation.
func Root(ctx context.Context, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "meridian",
		Description: `Meridian: call methods on internal services.

Services expose named methods over HTTP with bearer-token
authentication. The access file maps each service id to the port it
listens on and the token to present.`,
		Subcommands: []*cli.Command{
			callCommand(ctx, stdout),
			listCommand(ctx, stdout),
			servicesCommand(stdout),
			tokenCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					if len(args) > 0 {
						return cli.Validation("version takes no arguments")
					}
					fmt.Fprintf(stdout, "meridian %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
