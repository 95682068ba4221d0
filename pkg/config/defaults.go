package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// Default values for configuration.
const (
	DefaultMaxParallel    = 4
	DefaultWebhookTimeout = 10 * time.Second
	DefaultScenario       = reconcile.ScenarioBrokerRestart
)

// Environment variable names.
const (
	EnvMD5Column   = "REPLAYCHECK_MD5_COLUMN"
	EnvMaxParallel = "REPLAYCHECK_MAX_PARALLEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Checks:      []CheckConfig{},
		MaxParallel: DefaultMaxParallel,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// Malformed values are ignored with a warning.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvMaxParallel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Warn("ignoring invalid environment override", "name", EnvMaxParallel, "value", v)
		} else {
			c.MaxParallel = n
		}
	}

	if v := os.Getenv(EnvMD5Column); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Warn("ignoring invalid environment override", "name", EnvMD5Column, "value", v)
			return
		}
		for i := range c.Checks {
			if CheckType(c.Checks[i].Type) != CheckTypeMD5 {
				continue
			}
			if c.Checks[i].MD5 == nil {
				c.Checks[i].MD5 = &MD5Config{}
			}
			c.Checks[i].MD5.Column = n
		}
	}
}
