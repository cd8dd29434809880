package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"conductor/internal/health"
	"conductor/internal/process"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// maxConcurrentProbes bounds the fan-out of one monitoring tick.
const maxConcurrentProbes = 8

// HealthMonitor periodically probes running and degraded services. It only
// moves services between running and degraded; it never restarts or kills.
type HealthMonitor struct {
	state    *State
	interval time.Duration
	metrics  *Metrics
}

type probeTarget struct {
	name    string
	checker health.Checker
	proc    *process.Process
}

// Tick probes every running or degraded service once, concurrently, and
// applies the results.
func (m *HealthMonitor) Tick(ctx context.Context) {
	targets := m.targets()
	if len(targets) == 0 {
		return
	}

	results := make([]error, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = probe(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		// Results of probes cut short by cancellation say nothing about
		// the services.
		return
	}

	for i, t := range targets {
		m.apply(t.name, results[i])
	}
}

func probe(ctx context.Context, t probeTarget) error {
	if t.proc != nil && t.proc.Exited() {
		return fmt.Errorf("process exited with code %d", t.proc.ExitCode())
	}
	return t.checker.Check(ctx)
}

func (m *HealthMonitor) targets() []probeTarget {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	var out []probeTarget
	for _, name := range m.state.names {
		inst := m.state.instances[name]
		if !inst.State.IsLive() {
			continue
		}
		checker := m.state.checkers[name]
		if checker == nil {
			checker = health.AlwaysHealthy{}
		}
		out = append(out, probeTarget{name: name, checker: checker, proc: m.state.procs[name]})
	}
	return out
}

// apply records a probe result. It is discarded when the service left the
// running and degraded states while the probe was in flight.
func (m *HealthMonitor) apply(name string, err error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	inst := m.state.instances[name]
	if !inst.State.IsLive() {
		return
	}

	inst.RecordHealth(err, time.Now())
	m.metrics.RecordHealthCheck(name, err == nil)

	switch {
	case err == nil && inst.State == services.StateDegraded:
		_ = m.state.transitionLocked(inst, services.StateRunning, "health check passed")
	case err != nil && inst.State == services.StateRunning:
		_ = m.state.transitionLocked(inst, services.StateDegraded, err.Error())
	case err != nil:
		logging.Warn("HealthMonitor", "%s is still unhealthy (%d consecutive failures): %v", name, inst.ConsecutiveHealthFailures, err)
	default:
		logging.Debug("HealthMonitor", "%s is healthy", name)
	}
}

// Run calls Tick every interval until ctx is cancelled or the orchestrator
// stops running.
func (m *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !m.state.Running() {
				return nil
			}
			m.Tick(ctx)
		}
	}
}
