// Package app wires one conductor run together.
//
// NewApplication loads the service registry (an explicit --config file, else
// ./conductor.yaml, else ~/.config/conductor/conductor.yaml, else the
// built-in fleet), applies the command line overrides, configures logging
// and builds the orchestrator, the metrics registry and the optional status
// server. Configuration problems, including dependency cycles, surface here
// before any process is launched.
//
// Application.Run is the foreground mode: banner, ordered startup, startup
// summary, then health monitoring, audits, the status server and the
// configuration watcher until SIGINT or SIGTERM. Shutdown stops dependents
// before their dependencies; a second signal skips the remaining grace
// periods.
package app
