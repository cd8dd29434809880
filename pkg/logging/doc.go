// Package logging provides the structured logging used across conductor.
//
// It is a thin layer over log/slog with subsystem-first helpers so that every
// line carries the component that produced it:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Bootstrap", "Loaded %d services", n)
//	logging.Warn("HealthMonitor", "Service %s degraded", name)
//	logging.Error("Supervisor", err, "Failed to launch %s", name)
//
// Structured key/value lines (state transitions, probe results, audit
// summaries) go through LogAttrs:
//
//	logging.LogAttrs(logging.LevelInfo, "Supervisor", nil, "state transition",
//	    slog.String("service", "backend"),
//	    slog.String("from", "Starting"),
//	    slog.String("to", "Running"))
//
// Output is text by default; Init with FormatJSON switches to one JSON object
// per line for log collectors.
//
// LineWriter adapts an io.Writer (for example a child process's stdout) so
// that each complete line becomes one log entry.
package logging
