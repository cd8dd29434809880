// Package ports hands out TCP ports to managed services.
//
// A service declares the port it expects to bind. When that port is taken,
// by a foreign process or by another service of the same run, the Allocator
// probes the following ports up to a bound and returns the first free one.
// The helpers in rewrite.go carry a reassigned port into health URLs,
// argument vectors and the child environment.
package ports
