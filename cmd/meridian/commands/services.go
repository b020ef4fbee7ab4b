// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/servicetoken"
)

type serviceEntry struct {
	Service     string `json:"service"`
	Port        int    `json:"port"`
	Fingerprint string `json:"token_fingerprint"`
}

func servicesCommand(stdout io.Writer) *cli.Command {
	var (
		params     connection
		outputJSON bool
	)

	return &cli.Command{
		Name:    "services",
		Summary: "List the services in the access file",
		Description: `Print every service id in the access file with its port and a
fingerprint of its token. Tokens themselves are never printed.`,
		Usage: "meridian services [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("services", pflag.ContinueOnError)
			params.addFlags(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("services takes no arguments")
			}

			accessFile, _, err := params.resolve()
			if err != nil {
				return err
			}
			entries, err := servicetoken.LoadAccessFile(accessFile)
			if err != nil {
				return cli.Internal("%v", err)
			}

			var rows []serviceEntry
			for _, id := range slices.Sorted(maps.Keys(entries)) {
				entry := entries[id]
				rows = append(rows, serviceEntry{
					Service:     id,
					Port:        entry.Port,
					Fingerprint: servicetoken.Fingerprint(entry.Token),
				})
			}

			if outputJSON {
				return cli.WriteJSON(stdout, rows)
			}
			writer := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "SERVICE\tPORT\tTOKEN\n")
			for _, row := range rows {
				fmt.Fprintf(writer, "%s\t%d\t%s\n", row.Service, row.Port, row.Fingerprint)
			}
			return writer.Flush()
		},
	}
}
