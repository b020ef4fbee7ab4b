// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
)

func listCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		params     connection
		outputJSON bool
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List the methods a service exposes",
		Description: `Fetch a service's method list from /list and print one name per
line.`,
		Usage: "meridian list <service> [flags]",
		Examples: []cli.Example{
			{
				Description: "List methods of a service",
				Command:     "meridian list a0-IDAuthDB",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "print the list as a JSON array")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: meridian list <service>")
			}

			client, err := params.client()
			if err != nil {
				return err
			}
			serviceClient, err := client.Service(ctx, args[0])
			if err != nil {
				return classify(err)
			}

			methods := serviceClient.Methods()
			if outputJSON {
				return cli.WriteJSON(stdout, methods)
			}
			for _, method := range methods {
				fmt.Fprintln(stdout, method)
			}
			return nil
		},
	}
}
