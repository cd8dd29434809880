// Package statusserver exposes a read-only HTTP view of a running fleet:
// liveness of the orchestrator itself, a JSON snapshot of every service and
// the last audit, and the Prometheus metrics.
//
// It never changes the fleet; there are no write endpoints.
package statusserver
