package app

import (
	"io"

	"conductor/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug switches logging to debug level, which includes child output.
	Debug bool

	// LogFormat overrides logging.format when set ("text" or "json").
	LogFormat string

	// ConfigPath is an explicit configuration file. When empty, the project
	// and user locations are searched.
	ConfigPath string

	// StatusAddr enables the status server on this address when set.
	StatusAddr string

	// NoAudit disables the endpoint audit regardless of the file.
	NoAudit bool

	// Version is printed in the startup banner.
	Version string

	// Output receives the banner and the startup summary. Defaults to
	// stdout.
	Output io.Writer

	// FleetConfig is the loaded configuration. When set before
	// NewApplication, no file is read.
	FleetConfig *config.Config

	// resolvedPath is the file FleetConfig was read from, if any.
	resolvedPath string
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// applyOverrides applies command line flags on top of the loaded file.
func (c *Config) applyOverrides(cfg *config.Config) {
	if c.Debug {
		cfg.Logging.Level = "debug"
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = c.LogFormat
	}
	if c.StatusAddr != "" {
		cfg.StatusServer.Enabled = true
		cfg.StatusServer.Address = c.StatusAddr
	}
	if c.NoAudit {
		cfg.Audit.Enabled = false
	}
}
