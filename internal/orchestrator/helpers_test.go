//go:build !windows

package orchestrator

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"conductor/internal/audit"
	"conductor/internal/config"
	"conductor/internal/process/processtest"
	"conductor/internal/services"
)

func TestMain(m *testing.M) {
	processtest.Main()
	os.Exit(m.Run())
}

// freePort returns a port that was free on all interfaces a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// helperService declares a service backed by a processtest helper with an
// HTTP health check on its assigned port.
func helperService(t *testing.T, name, mode string, args ...string) config.ServiceSpec {
	return config.ServiceSpec{
		Name:    name,
		Command: processtest.Command(mode, args...),
		Port:    freePort(t),
		Env:     processtest.Env(),
		HealthCheck: config.HealthCheckSpec{
			URL:     "http://127.0.0.1:{{port}}/health",
			Timeout: time.Second,
		},
		StartupTimeout: 10 * time.Second,
	}
}

func dependsOn(spec config.ServiceSpec, deps ...string) config.ServiceSpec {
	spec.DependsOn = deps
	return spec
}

func testConfig(specs ...config.ServiceSpec) config.Config {
	cfg := config.Config{
		Services:            specs,
		PortSearchBound:     100,
		HealthPollInterval:  50 * time.Millisecond,
		HealthCheckInterval: time.Hour,
		HealthCheckTimeout:  time.Second,
		GracePeriod:         2 * time.Second,
		KillTimeout:         2 * time.Second,
	}
	cfg.ApplyDefaults()
	return cfg
}

// newTestOrchestrator builds an orchestrator and shuts it down at the end of
// the test.
func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		o.Shutdown(context.Background())
	})
	return o
}

func stateOf(t *testing.T, o *Orchestrator, name string) services.ServiceState {
	t.Helper()
	snap, ok := o.State().Instance(name)
	require.True(t, ok, "unknown service %s", name)
	return snap.State
}

// waitForPID waits until the named service holds a PID and returns it.
func waitForPID(t *testing.T, o *Orchestrator, name string) int {
	t.Helper()
	var pid int
	require.Eventually(t, func() bool {
		snap, _ := o.State().Instance(name)
		pid = snap.PID
		return pid != 0
	}, 10*time.Second, 10*time.Millisecond)
	return pid
}

// processGone reports whether no process with pid exists any more.
func processGone(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return p.Signal(zeroSignal) != nil
}

// fakeAuditor counts calls and returns a fixed result.
type fakeAuditor struct {
	calls  int
	report audit.Report
	err    error
}

func (f *fakeAuditor) Audit(ctx context.Context) (audit.Report, error) {
	f.calls++
	return f.report, f.err
}

// gaugeValue returns the value of a gauge with the given labels, or -1.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetGauge().GetValue()
		}
	}
	return -1
}
