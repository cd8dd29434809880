// Package services defines the runtime record of a managed service and its
// lifecycle states.
//
// # Core Concepts
//
// ServiceInstance: the runtime counterpart of a config.ServiceSpec. It holds
// the assigned port, the PID of the live process, the current state and the
// outcome of the last health probe.
//
// ServiceState: one of pending, blocked, starting, running, degraded,
// stopping, stopped or failed. Transitions form a directed acyclic graph:
//
//	pending  -> blocked | starting | failed
//	starting -> running | failed | stopping
//	running  -> degraded | stopping
//	degraded -> running | stopping
//	stopping -> stopped
//
// Blocked, stopped and failed are terminal for a run.
//
// Snapshot: an immutable copy of an instance for dashboards and the status
// endpoint.
//
// # Thread Safety
//
// ServiceInstance has no lock of its own. The orchestrator guards every
// instance with its state mutex; consumers only ever see Snapshots.
package services
