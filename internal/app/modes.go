package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"conductor/internal/config"
	"conductor/internal/formatting"
	"conductor/internal/orchestrator"
	"conductor/pkg/logging"
)

// runServe runs the fleet in the foreground.
//
// Behavior:
//   - Prints the banner, then starts the services in dependency order
//   - Prints the startup summary
//   - Runs the health monitor, the audit scheduler, the status server and
//     the configuration watcher until ctx is cancelled or a signal arrives
//   - Stops every service in reverse dependency order
//
// Signal Handling:
//   - The first SIGINT or SIGTERM triggers a graceful shutdown, also while
//     startup is still in progress
//   - A second signal skips the remaining grace periods
//
// An incomplete startup does not stop the services that did come up; it is
// reported when the run ends.
func runServe(ctx context.Context, cfg *Config, services *Services) error {
	orch := services.Orchestrator

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	// forceCtx is cancelled by the second signal and cuts shutdown short.
	forceCtx, cancelForce := context.WithCancel(context.Background())
	defer cancelForce()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		count := 0
		for {
			select {
			case sig := <-sigChan:
				count++
				if count == 1 {
					logging.Info("CLI", "Received %s, shutting down", sig)
					cancelRun()
					continue
				}
				logging.Warn("CLI", "Received %s again, killing remaining services", sig)
				cancelForce()
				return
			case <-forceCtx.Done():
				return
			}
		}
	}()

	printBanner(cfg.Output, cfg, orch.RunID())

	g, gctx := errgroup.WithContext(runCtx)
	if services.StatusServer != nil {
		g.Go(func() error {
			return services.StatusServer.Run(gctx)
		})
	}
	if cfg.resolvedPath != "" {
		path := cfg.resolvedPath
		g.Go(func() error {
			return config.Watch(gctx, path, func(p string) {
				logging.Warn("ConfigWatcher", "%s changed on disk; restart conductor to apply the new registry", p)
			})
		})
	}

	summary, startErr := orch.Start(gctx)
	printSummary(cfg, summary, orch)

	if startErr != nil && !errors.Is(startErr, orchestrator.ErrStartupIncomplete) {
		logging.Error("CLI", startErr, "Startup failed")
	}

	if !summary.Interrupted && gctx.Err() == nil {
		if startErr == nil {
			logging.Info("CLI", "All services started. Press Ctrl+C to stop all services and exit.")
		} else {
			logging.Warn("CLI", "Some services did not start. Press Ctrl+C to stop the rest and exit.")
		}
		g.Go(func() error {
			return orch.Run(gctx)
		})
		<-gctx.Done()
	}

	logging.Info("CLI", "--- Shutting down services ---")
	orch.Shutdown(forceCtx)
	cancelRun()

	if err := g.Wait(); err != nil {
		return err
	}
	return startErr
}

func printSummary(cfg *Config, summary orchestrator.StartupSummary, orch *orchestrator.Orchestrator) {
	f := formatting.New(formatting.Options{Format: formatting.FormatTable, Color: isTerminal(cfg.Output)})
	if err := f.FormatSummary(cfg.Output, summary, orch.Snapshot()); err != nil {
		logging.Error("CLI", err, "Failed to print startup summary")
	}
}
