// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/config"
	"github.com/meridian-foundation/meridian/lib/service"
)

// connection holds the flags shared by commands that talk to services.
type connection struct {
	configPath string
	accessFile string
	host       string
	verbose    bool
}

func (c *connection) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.accessFile, "access-file", "", "access file mapping service ids to ports and tokens (overrides config)")
	flagSet.StringVar(&c.host, "host", "", "host the services listen on (overrides config)")
	flagSet.BoolVarP(&c.verbose, "verbose", "v", false, "log requests at debug level")
}

// resolve returns the access file and host to use. An explicit
// --access-file needs no config file; otherwise the config comes from
// --config or MERIDIAN_CONFIG.
func (c *connection) resolve() (accessFile, host string, err error) {
	accessFile, host = c.accessFile, c.host
	if accessFile != "" {
		return accessFile, host, nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return "", "", cli.Validation("%v", err)
	}
	if err := cfg.ValidateClient(); err != nil {
		return "", "", cli.Validation("invalid config: %v", err)
	}
	if host == "" {
		host = cfg.Client.Host
	}
	return cfg.Client.AccessFile, host, nil
}

func (c *connection) client() (*service.Client, error) {
	accessFile, host, err := c.resolve()
	if err != nil {
		return nil, err
	}

	options := []service.ClientOption{
		service.WithLogger(cli.NewCommandLogger(c.verbose)),
	}
	if host != "" {
		options = append(options, service.WithHost(host))
	}

	client, err := service.NewClient(accessFile, options...)
	if err != nil {
		return nil, cli.Internal("%v", err)
	}
	return client, nil
}

func (c *connection) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.LoadFile(c.configPath)
	}
	return config.Load()
}
