package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"conductor/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/conductor"
	configFileName = "conductor.yaml"
)

// Package-level indirection so tests can point the lookup elsewhere.
var (
	osUserHomeDir = os.UserHomeDir

	getProjectConfigPath = func() (string, error) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, configFileName), nil
	}

	getUserConfigPath = func() (string, error) {
		homeDir, err := osUserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, userConfigDir, configFileName), nil
	}
)

// ResolveConfigPath returns the file LoadConfig would read. An explicit path
// always wins; otherwise the project file is preferred over the user file.
// An empty result means no file exists and the built-in fleet is used.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, lookup := range []func() (string, error){getProjectConfigPath, getUserConfigPath} {
		path, err := lookup()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfig loads and validates the configuration. With an explicit path
// the file must exist; otherwise the project and user locations are tried
// and the built-in defaults are used when neither exists.
func LoadConfig(explicit string) (Config, string, error) {
	path := ResolveConfigPath(explicit)
	if path == "" {
		logging.Info("ConfigLoader", "No %s found, using built-in service registry", configFileName)
		cfg := GetDefaultConfig()
		return cfg, "", cfg.Validate()
	}

	cfg, err := LoadConfigFromPath(path)
	return cfg, path, err
}

// LoadConfigFromPath reads one YAML file. Keys omitted from the file keep
// their default values; a services list in the file replaces the built-in
// fleet entirely.
func LoadConfigFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, newConfigurationError(path, "io", err, "pass --config with an existing file, or omit it to use the built-in registry")
		}
		return Config{}, newConfigurationError(path, "io", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return Config{}, &ConfigurationError{
				FilePath:  path,
				ErrorType: "validation",
				Message:   verrs.Error(),
				Err:       err,
			}
		}
		return Config{}, newConfigurationError(path, "parse", err, "check the YAML syntax and field names")
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s (%d services)", path, len(cfg.Services))
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := defaultFleet()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
