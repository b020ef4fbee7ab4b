// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/service"
)

type callParams struct {
	connection
	data       string
	dataFile   string
	outputJSON bool
	diagnostic bool
	discover   bool
}

func callCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var params callParams

	return &cli.Command{
		Name:    "call",
		Summary: "Call a method on a service",
		Description: `Call a method on a service and print the response envelope.

Arguments are given as key=value pairs. Each value is parsed as JSON
when it can be (numbers, true/false, null, arrays, objects) and is sent
as a string otherwise. --data or --data-file supply a JSON object
(comments and trailing commas allowed); key=value pairs override its
fields.

Without --discover the call goes straight to /call. With --discover the
service's method list is fetched first and an unknown method fails
locally.

The exit code is 0 for a successful envelope and 1 for a failed one.`,
		Usage: "meridian call <service> <method> [key=value...] [flags]",
		Examples: []cli.Example{
			{
				Description: "Call a method with no arguments",
				Command:     "meridian call a0-IDAuthDB test1",
			},
			{
				Description: "Pass a boolean argument",
				Command:     "meridian call a0-IDAuthDB test1 test=true",
			},
			{
				Description: "Read arguments from a JSONC file and print JSON",
				Command:     "meridian call b1-Ledger transfer --data-file transfer.jsonc --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("call", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.StringVar(&params.data, "data", "", "JSON object of arguments")
			flagSet.StringVar(&params.dataFile, "data-file", "", "file holding a JSON object of arguments (- for stdin)")
			flagSet.BoolVar(&params.outputJSON, "json", false, "print the envelope as JSON")
			flagSet.BoolVar(&params.diagnostic, "diag", false, "print the result data in CBOR diagnostic notation")
			flagSet.BoolVar(&params.discover, "discover", false, "fetch the method list first and check the method locally")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return cli.Validation("usage: meridian call <service> <method> [key=value...]")
			}
			if params.outputJSON && params.diagnostic {
				return cli.Validation("--json and --diag are mutually exclusive")
			}
			serviceID, method := args[0], args[1]

			callArgs, err := buildArgs(params.data, params.dataFile, os.Stdin, args[2:])
			if err != nil {
				return cli.Validation("%v", err)
			}

			client, err := params.client()
			if err != nil {
				return err
			}

			result, err := call(ctx, client, serviceID, method, callArgs, params.discover)
			if err != nil {
				return err
			}

			mode := outputText
			switch {
			case params.outputJSON:
				mode = outputJSON
			case params.diagnostic:
				mode = outputDiagnostic
			}
			if err := writeResult(stdout, result, mode, cli.IsTerminal(stdout)); err != nil {
				return err
			}
			if !result.Success {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func call(ctx context.Context, client *service.Client, serviceID, method string, args map[string]any, discover bool) (service.Result, error) {
	var (
		result service.Result
		err    error
	)
	if discover {
		var serviceClient *service.ServiceClient
		serviceClient, err = client.Service(ctx, serviceID)
		if err == nil {
			result, err = serviceClient.Call(ctx, method, args)
		}
	} else {
		result, err = client.CallService(ctx, serviceID, method, args)
	}
	return result, classify(err)
}

// classify maps client errors onto CLI error categories.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var unknownMethod *service.UnknownMethodError
	switch {
	case errors.Is(err, service.ErrUnknownService), errors.As(err, &unknownMethod):
		return cli.NotFound("%v", err)
	default:
		return cli.Transient("%v", err)
	}
}
