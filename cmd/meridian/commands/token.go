// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/config"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
)

func tokenCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Manage service tokens",
		Subcommands: []*cli.Command{
			mintCommand(stdout),
			fingerprintCommand(stdout),
		},
	}
}

type mintParams struct {
	configPath string
	service    string
	port       int
	tokensFile string
	accessFile string
	printToken bool
}

func mintCommand(stdout io.Writer) *cli.Command {
	var params mintParams

	return &cli.Command{
		Name:    "mint",
		Summary: "Generate a token and grant it access to a service",
		Description: `Generate a random token, add it to the service's token file, and
append a matching entry to the caller's access file. Both files are
locked while they are written, so a running service picks the token up
on its next request.

--tokens-file and --access-file default to the service and client
paths of the config file when one is available.`,
		Usage: "meridian token mint --service <id> --port <port> [flags]",
		Examples: []cli.Example{
			{
				Description: "Grant the local caller access to a service",
				Command:     "meridian token mint --service a0-IDAuthDB --port 8004",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mint", pflag.ContinueOnError)
			flagSet.StringVar(&params.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
			flagSet.StringVar(&params.service, "service", "", "service id, e.g. a0-IDAuthDB (required)")
			flagSet.IntVar(&params.port, "port", 0, "port the service listens on (required)")
			flagSet.StringVar(&params.tokensFile, "tokens-file", "", "the service's token file")
			flagSet.StringVar(&params.accessFile, "access-file", "", "the caller's access file")
			flagSet.BoolVar(&params.printToken, "print-token", false, "also print the token itself")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("mint takes no positional arguments, got %q", args[0])
			}
			if err := servicetoken.ValidateServiceID(params.service); err != nil {
				return cli.Validation("--service: %v", err)
			}
			if params.port < 1 || params.port > 65535 {
				return cli.Validation("--port must be between 1 and 65535, got %d", params.port)
			}
			if err := params.fillPaths(); err != nil {
				return err
			}

			store, err := servicetoken.NewFileStore(params.tokensFile)
			if err != nil {
				return cli.Internal("%v", err)
			}
			token, err := servicetoken.Generate()
			if err != nil {
				return cli.Internal("%v", err)
			}
			if err := store.Add(token); err != nil {
				return cli.Internal("%v", err)
			}
			entry := servicetoken.AccessEntry{Service: params.service, Port: params.port, Token: token}
			if err := servicetoken.AppendAccessEntry(params.accessFile, entry); err != nil {
				return cli.Internal("%v", err)
			}

			fmt.Fprintf(stdout, "minted token %s for %s on port %d\n",
				servicetoken.Fingerprint(token), params.service, params.port)
			if params.printToken {
				fmt.Fprintln(stdout, token)
			}
			return nil
		},
	}
}

// fillPaths defaults unset file paths from the config file.
func (p *mintParams) fillPaths() error {
	if p.tokensFile != "" && p.accessFile != "" {
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if p.configPath != "" {
		cfg, err = config.LoadFile(p.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cli.Validation("--tokens-file and --access-file are required without a config: %v", err)
	}

	if p.tokensFile == "" {
		p.tokensFile = cfg.Service.TokensFile
	}
	if p.accessFile == "" {
		p.accessFile = cfg.Client.AccessFile
	}
	return nil
}

func fingerprintCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "fingerprint",
		Summary: "Print the log fingerprint of a token",
		Description: `Print the short fingerprint that services log in place of a token,
for matching log lines to a token without revealing it.`,
		Usage: "meridian token fingerprint <token>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: meridian token fingerprint <token>")
			}
			fmt.Fprintln(stdout, servicetoken.Fingerprint(args[0]))
			return nil
		},
	}
}
