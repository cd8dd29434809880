package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"conductor/internal/config"
	"conductor/pkg/logging"
)

// Application bootstraps and runs one conductor run: it loads the service
// registry, sets up logging and builds the orchestrator, then runs the
// fleet until a signal arrives.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the configuration, applies the command line
// overrides, initializes logging and creates the services. Configuration
// errors, including dependency cycles, are returned before any process is
// started.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	// Log at the requested level while the configuration is read.
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, cfg.Output)

	if cfg.FleetConfig == nil {
		fleet, path, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, err
		}
		cfg.FleetConfig = &fleet
		cfg.resolvedPath = path
	}
	cfg.applyOverrides(cfg.FleetConfig)
	if err := cfg.FleetConfig.Validate(); err != nil {
		source := cfg.resolvedPath
		if source == "" {
			source = "built-in registry"
		}
		return nil, &config.ConfigurationError{
			FilePath:  source,
			ErrorType: "validation",
			Message:   err.Error(),
			Err:       err,
		}
	}

	level, err := logging.ParseLevel(cfg.FleetConfig.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Options{
		Level:  level,
		Format: logging.Format(cfg.FleetConfig.Logging.Format),
		Output: cfg.Output,
	})

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, err
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run starts the fleet and blocks until ctx is cancelled or SIGINT or
// SIGTERM arrives, then shuts everything down. It returns an error wrapping
// orchestrator.ErrStartupIncomplete when a non-optional service did not
// reach running during startup.
func (a *Application) Run(ctx context.Context) error {
	return runServe(ctx, a.config, a.services)
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// printBanner writes the run header.
func printBanner(w io.Writer, cfg *Config, runID string) {
	source := cfg.resolvedPath
	if source == "" {
		source = "built-in registry"
	}
	fmt.Fprintf(w, "conductor %s\n", versionOrDev(cfg.Version))
	fmt.Fprintf(w, "  run:      %s\n", runID)
	fmt.Fprintf(w, "  config:   %s\n", source)
	fmt.Fprintf(w, "  services: %d\n", len(cfg.FleetConfig.Services))
	if cfg.FleetConfig.StatusServer.Enabled {
		fmt.Fprintf(w, "  status:   http://%s/status\n", cfg.FleetConfig.StatusServer.Address)
	}
	fmt.Fprintln(w)
}

func versionOrDev(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
