// Package config provides configuration loading for labdesc.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/labdesc/pkg/descriptor"
	"github.com/ethpandaops/labdesc/pkg/middleware"
	"github.com/ethpandaops/labdesc/pkg/observability"
)

// Config is the main configuration structure.
type Config struct {
	Catalog       CatalogConfig       `yaml:"catalog"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// CatalogConfig points at the directory holding the scenarios.
type CatalogConfig struct {
	// Root is the directory whose subdirectories are scenarios.
	Root string `yaml:"root"`
	// Descriptor is the descriptor file name inside each scenario.
	Descriptor string `yaml:"descriptor"`
}

// ServerConfig holds HTTP catalog server configuration.
type ServerConfig struct {
	Host      string                     `yaml:"host"`
	Port      int                        `yaml:"port"`
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	MetricsEnabled bool                       `yaml:"metrics_enabled"`
	Logging        observability.LoggerConfig `yaml:"logging"`
}

// Load loads configuration from a YAML file with environment variable substitution.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "config.yaml"
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)

	return cfg
}

// envVarWithDefaultPattern matches ${VAR_NAME} and ${VAR_NAME:-default}.
var envVarWithDefaultPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns.
// Comment lines are left alone; unset variables without a default become empty.
func substituteEnvVars(content string) string {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		lines[i] = envVarWithDefaultPattern.ReplaceAllStringFunc(line, func(match string) string {
			parts := envVarWithDefaultPattern.FindStringSubmatch(match)

			if value := os.Getenv(parts[1]); value != "" {
				return value
			}

			return parts[2]
		})
	}

	return strings.Join(lines, "\n")
}

// ApplyDefaults sets default values for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Catalog.Root == "" {
		cfg.Catalog.Root = "scenarios"
	}

	if cfg.Catalog.Descriptor == "" {
		cfg.Catalog.Descriptor = descriptor.DefaultFileName
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 2480
	}

	cfg.Server.RateLimit.ApplyDefaults()
	cfg.Observability.Logging.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Catalog.Descriptor, `/\`) {
		return errors.New("catalog.descriptor must be a file name, not a path")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if !observability.IsValidLogLevel(string(c.Observability.Logging.Level)) {
		return fmt.Errorf("observability.logging.level %q is not valid", c.Observability.Logging.Level)
	}

	if !observability.IsValidLogFormat(string(c.Observability.Logging.Format)) {
		return fmt.Errorf("observability.logging.format %q is not valid", c.Observability.Logging.Format)
	}

	return nil
}
