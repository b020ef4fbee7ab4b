// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meridian-foundation/meridian/lib/servicetoken"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "MERIDIAN_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Service configures a service binary.
	Service ServiceConfig `yaml:"service"`

	// Client configures the meridian CLI and other callers.
	Client ClientConfig `yaml:"client"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for token and access files.
	Root string `yaml:"root"`
}

// ServiceConfig configures a service binary.
type ServiceConfig struct {
	// Name is the service id, e.g. "a0-IDAuthDB".
	Name string `yaml:"name"`

	// Host is the listen address. Default: 127.0.0.1
	Host string `yaml:"host"`

	// Port is the listen port. 0 asks the OS for a free port.
	Port int `yaml:"port"`

	// TokensFile holds the bearer tokens this service accepts.
	// Default: ${MERIDIAN_ROOT}/tokens
	TokensFile string `yaml:"tokens_file"`

	// ListRequiresAuth applies bearer authentication to /list.
	// Default: false (development), true (production)
	ListRequiresAuth bool `yaml:"list_requires_auth"`

	// HandlerTimeout is the deadline on each method's context.
	// Zero disables it.
	HandlerTimeout time.Duration `yaml:"handler_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxRequestBytes bounds a /call body. Default: 1 MiB
	MaxRequestBytes int64 `yaml:"max_request_bytes"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics"`

	// RateLimit is the sustained requests per second; zero disables
	// limiting. RateBurst is the bucket size.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Address returns Host:Port.
func (s ServiceConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ClientConfig configures callers.
type ClientConfig struct {
	// AccessFile maps service ids to ports and tokens.
	// Default: ${MERIDIAN_ROOT}/access
	AccessFile string `yaml:"access_file"`

	// Host is where services are reached. Default: 127.0.0.1
	Host string `yaml:"host"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Unset fields leave the base value alone.
type ConfigOverrides struct {
	Paths   *PathsConfig     `yaml:"paths,omitempty"`
	Service *ServiceOverride `yaml:"service,omitempty"`
	Client  *ClientConfig    `yaml:"client,omitempty"`
}

// ServiceOverride is ServiceConfig with optional fields, so that an
// override can turn a boolean off.
type ServiceOverride struct {
	Host             string         `yaml:"host,omitempty"`
	Port             *int           `yaml:"port,omitempty"`
	TokensFile       string         `yaml:"tokens_file,omitempty"`
	ListRequiresAuth *bool          `yaml:"list_requires_auth,omitempty"`
	HandlerTimeout   *time.Duration `yaml:"handler_timeout,omitempty"`
	Metrics          *bool          `yaml:"metrics,omitempty"`
	RateLimit        *float64       `yaml:"rate_limit,omitempty"`
	RateBurst        *int           `yaml:"rate_burst,omitempty"`
}

// Default returns the base configuration that the file is loaded on
// top of.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "meridian")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
		},
		Service: ServiceConfig{
			Host:            "127.0.0.1",
			TokensFile:      "${MERIDIAN_ROOT}/tokens",
			ShutdownTimeout: 10 * time.Second,
			MaxRequestBytes: 1 << 20,
		},
		Client: ClientConfig{
			AccessFile: "${MERIDIAN_ROOT}/access",
			Host:       "127.0.0.1",
		},
	}
}

// Load loads configuration from the file named by MERIDIAN_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your meridian.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the override
// section for the configured environment, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			requireAuth := true
			overrides = &ConfigOverrides{
				Service: &ServiceOverride{ListRequiresAuth: &requireAuth},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil && overrides.Paths.Root != "" {
		c.Paths.Root = overrides.Paths.Root
	}

	if service := overrides.Service; service != nil {
		if service.Host != "" {
			c.Service.Host = service.Host
		}
		if service.Port != nil {
			c.Service.Port = *service.Port
		}
		if service.TokensFile != "" {
			c.Service.TokensFile = service.TokensFile
		}
		if service.ListRequiresAuth != nil {
			c.Service.ListRequiresAuth = *service.ListRequiresAuth
		}
		if service.HandlerTimeout != nil {
			c.Service.HandlerTimeout = *service.HandlerTimeout
		}
		if service.Metrics != nil {
			c.Service.Metrics = *service.Metrics
		}
		if service.RateLimit != nil {
			c.Service.RateLimit = *service.RateLimit
		}
		if service.RateBurst != nil {
			c.Service.RateBurst = *service.RateBurst
		}
	}

	if client := overrides.Client; client != nil {
		if client.AccessFile != "" {
			c.Client.AccessFile = client.AccessFile
		}
		if client.Host != "" {
			c.Client.Host = client.Host
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"MERIDIAN_ROOT": c.Paths.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["MERIDIAN_ROOT"] = c.Paths.Root

	c.Service.TokensFile = expandVars(c.Service.TokensFile, vars)
	c.Client.AccessFile = expandVars(c.Client.AccessFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the whole configuration, reporting every problem.
func (c *Config) Validate() error {
	return errors.Join(c.validateCommon(), c.validateService(), c.validateClient())
}

// ValidateService checks only what a service binary needs.
func (c *Config) ValidateService() error {
	return errors.Join(c.validateCommon(), c.validateService())
}

// ValidateClient checks only what a caller needs.
func (c *Config) ValidateClient() error {
	return errors.Join(c.validateCommon(), c.validateClient())
}

func (c *Config) validateCommon() error {
	var errs []error
	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateService() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, fmt.Errorf("service.name is required"))
	} else if err := servicetoken.ValidateServiceID(c.Service.Name); err != nil {
		errs = append(errs, fmt.Errorf("service.name: %w", err))
	}
	if c.Service.Host == "" {
		errs = append(errs, fmt.Errorf("service.host is required"))
	}
	if c.Service.Port < 0 || c.Service.Port > 65535 {
		errs = append(errs, fmt.Errorf("service.port must be between 0 and 65535, got %d", c.Service.Port))
	}
	if c.Service.TokensFile == "" {
		errs = append(errs, fmt.Errorf("service.tokens_file is required"))
	}
	if c.Service.HandlerTimeout < 0 {
		errs = append(errs, fmt.Errorf("service.handler_timeout must not be negative"))
	}
	if c.Service.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("service.shutdown_timeout must not be negative"))
	}
	if c.Service.MaxRequestBytes < 0 {
		errs = append(errs, fmt.Errorf("service.max_request_bytes must not be negative"))
	}
	if c.Service.RateLimit < 0 || c.Service.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("service.rate_limit and service.rate_burst must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateClient() error {
	var errs []error
	if c.Client.AccessFile == "" {
		errs = append(errs, fmt.Errorf("client.access_file is required"))
	}
	if c.Client.Host == "" {
		errs = append(errs, fmt.Errorf("client.host is required"))
	}
	return errors.Join(errs...)
}
