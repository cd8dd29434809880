// Package health implements the probes that decide whether a managed service
// is alive: an HTTP GET that must return 200, a check command that must exit
// 0, or a PostgreSQL ping. Poll repeats a probe until it passes or a
// deadline expires.
package health
