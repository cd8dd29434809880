package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conductor/internal/ports"
	"conductor/internal/process"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// ShutdownCoordinator stops every live process in reverse dependency order.
type ShutdownCoordinator struct {
	state     *State
	allocator *ports.Allocator
	levels    [][]string

	gracePeriod time.Duration
	killTimeout time.Duration

	// cancel stops the background loops and any startup in progress.
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}
}

func newShutdownCoordinator(state *State, allocator *ports.Allocator, levels [][]string, grace, kill time.Duration, cancel context.CancelFunc) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		state:       state,
		allocator:   allocator,
		levels:      levels,
		gracePeriod: grace,
		killTimeout: kill,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Shutdown stops the fleet. Dependents stop before their dependencies:
// services of the deepest dependency level stop first, concurrently, and a
// level starts only after the one above it is done. Every process gets
// SIGTERM, then SIGKILL after the grace period. Cancelling ctx ends every
// running and remaining grace period at once.
//
// Shutdown is idempotent; concurrent callers wait for the first one. When it
// returns no instance holds a PID.
func (c *ShutdownCoordinator) Shutdown(ctx context.Context) {
	c.once.Do(func() {
		defer close(c.done)

		c.state.setRunning(false)
		if c.cancel != nil {
			c.cancel()
		}

		// A launch already past its running check records its process
		// before the stop pass looks for it.
		c.state.launches.Wait()

		start := time.Now()
		logging.Info("Shutdown", "Stopping services")

		for i := len(c.levels) - 1; i >= 0; i-- {
			c.stopLevel(ctx, c.levels[i])
		}
		// Anything not covered by the levels, e.g. a service that was
		// never part of the start order.
		c.stopLevel(ctx, c.state.names)

		logging.Info("Shutdown", "All services stopped in %s", time.Since(start).Round(time.Millisecond))
	})
}

// Done is closed once Shutdown has completed.
func (c *ShutdownCoordinator) Done() <-chan struct{} {
	return c.done
}

func (c *ShutdownCoordinator) stopLevel(ctx context.Context, names []string) {
	var g errgroup.Group
	for _, name := range names {
		proc, ok := c.beginStop(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			c.stopOne(ctx, name, proc)
			return nil
		})
	}
	_ = g.Wait()
}

// beginStop moves a service that holds a process to stopping.
func (c *ShutdownCoordinator) beginStop(name string) (*process.Process, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	inst, ok := c.state.instances[name]
	if !ok || !inst.HasProcess() {
		return nil, false
	}
	if inst.State != services.StateStopping {
		if err := c.state.transitionLocked(inst, services.StateStopping, "shutdown"); err != nil {
			return nil, false
		}
	}
	return c.state.procs[name], true
}

func (c *ShutdownCoordinator) stopOne(ctx context.Context, name string, proc *process.Process) {
	var res process.StopResult
	if proc != nil {
		res = proc.Terminate(ctx, c.gracePeriod, c.killTimeout)
	} else {
		res.Reaped = true
	}
	if res.Escalated {
		logging.Warn("Shutdown", "%s did not exit after SIGTERM, sent SIGKILL", name)
	}
	if !res.Reaped {
		logging.Warn("Shutdown", "%s was not reaped %s after SIGKILL", name, c.killTimeout)
	}

	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	inst := c.state.instances[name]
	if inst.AssignedPort != 0 {
		c.allocator.Release(inst.AssignedPort)
	}
	inst.PID = 0
	delete(c.state.procs, name)
	delete(c.state.checkers, name)
	_ = c.state.transitionLocked(inst, services.StateStopped, "")
}
