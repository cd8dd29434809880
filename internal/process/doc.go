// Package process launches managed child processes in their own process
// group and stops them with SIGTERM, escalating to SIGKILL.
//
// Output of the child is copied to an optional writer (usually a
// logging.LineWriter) and the last lines are kept in memory, so a service
// that dies during startup can be diagnosed from the orchestrator log.
package process
