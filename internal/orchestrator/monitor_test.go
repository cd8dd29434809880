//go:build !windows

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/process/processtest"
	"conductor/internal/services"
)

func TestHealthMonitorDegradesAndRecovers(t *testing.T) {
	flag := filepath.Join(t.TempDir(), "unhealthy")
	o := newTestOrchestrator(t, Options{Config: testConfig(
		helperService(t, "backend", processtest.ModeToggle, flag),
		helperService(t, "llm_server", processtest.ModeServe),
	)})

	_, err := o.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(flag, nil, 0o600))

	o.CheckHealth(context.Background())
	snap, _ := o.State().Instance("backend")
	assert.Equal(t, services.StateDegraded, snap.State)
	assert.Equal(t, 1, snap.ConsecutiveHealthFailures)
	assert.Equal(t, services.HealthUnhealthy, snap.Health)
	assert.NotEmpty(t, snap.LastHealthError)
	assert.Equal(t, services.StateRunning, stateOf(t, o, "llm_server"))

	o.CheckHealth(context.Background())
	snap, _ = o.State().Instance("backend")
	assert.Equal(t, services.StateDegraded, snap.State)
	assert.Equal(t, 2, snap.ConsecutiveHealthFailures)
	assert.NotZero(t, snap.PID, "the monitor never stops a process")

	require.NoError(t, os.Remove(flag))

	o.CheckHealth(context.Background())
	snap, _ = o.State().Instance("backend")
	assert.Equal(t, services.StateRunning, snap.State)
	assert.Zero(t, snap.ConsecutiveHealthFailures)
	assert.Equal(t, services.HealthHealthy, snap.Health)
	assert.Empty(t, snap.LastHealthError)
}

func TestHealthMonitorReportsExitedProcess(t *testing.T) {
	o := newTestOrchestrator(t, Options{Config: testConfig(
		helperService(t, "backend", processtest.ModeServe),
	)})

	_, err := o.Start(context.Background())
	require.NoError(t, err)

	o.State().mu.Lock()
	proc := o.State().procs["backend"]
	o.State().mu.Unlock()
	require.NotNil(t, proc)
	proc.Terminate(context.Background(), 0, time.Second)

	o.CheckHealth(context.Background())
	snap, _ := o.State().Instance("backend")
	assert.Equal(t, services.StateDegraded, snap.State)
	assert.Contains(t, snap.LastHealthError, "process exited")
}

func TestHealthMonitorIgnoresCancelledTick(t *testing.T) {
	flag := filepath.Join(t.TempDir(), "unhealthy")
	o := newTestOrchestrator(t, Options{Config: testConfig(
		helperService(t, "backend", processtest.ModeToggle, flag),
	)})

	_, err := o.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(flag, nil, 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.CheckHealth(ctx)

	snap, _ := o.State().Instance("backend")
	assert.Equal(t, services.StateRunning, snap.State)
	assert.Zero(t, snap.ConsecutiveHealthFailures)
}

func TestHealthMonitorSkipsStoppedServices(t *testing.T) {
	o := newTestOrchestrator(t, Options{Config: testConfig(
		helperService(t, "backend", processtest.ModeServe),
	)})

	_, err := o.Start(context.Background())
	require.NoError(t, err)
	o.Shutdown(context.Background())

	o.CheckHealth(context.Background())
	assert.Equal(t, services.StateStopped, stateOf(t, o, "backend"))
}
