package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"conductor/internal/config"
	"conductor/internal/health"
	"conductor/internal/ports"
	"conductor/internal/process"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// Supervisor launches one service at a time and waits for it to become
// healthy.
type Supervisor struct {
	state     *State
	allocator *ports.Allocator
	metrics   *Metrics

	portSearchBound int
	pollInterval    time.Duration
	gracePeriod     time.Duration
	killTimeout     time.Duration

	environ    func() []string
	newChecker func(spec config.ServiceSpec, port int) health.Checker
}

// Start brings the named pending service up. It returns the state the
// service ended in.
//
// A dependency that is not running blocks the service. Port exhaustion and
// launch failures (missing binary, bad working directory) mark it failed and
// are returned as errors. A health check that does not pass within the
// startup timeout, or a child that exits while starting, also marks it
// failed; that outcome is recorded on the instance and not returned.
//
// If ctx is cancelled while the health check is polled, the service is left
// starting with its process alive for the shutdown coordinator to stop.
func (s *Supervisor) Start(ctx context.Context, name string) (services.ServiceState, error) {
	spec, blocked, err := s.checkStartable(name)
	if err != nil || blocked {
		return s.stateOf(name), err
	}

	proc, checker, port, err := s.launch(name, spec)
	if err != nil {
		s.setLastError(name, err.Error())
		_ = s.state.Transition(name, services.StateFailed, err.Error())
		return services.StateFailed, err
	}
	startedAt := time.Now()

	pollErr := s.waitHealthy(ctx, name, proc, checker, spec.StartupTimeout)

	switch {
	case pollErr == nil:
		return s.markRunning(name, startedAt), nil

	case proc.Exited():
		return s.failEarlyExit(ctx, name, proc, port), nil

	case errors.Is(pollErr, health.ErrTimeout):
		logging.Error("Supervisor", pollErr, "%s did not become healthy within %s, terminating", name, spec.StartupTimeout)
		res := proc.Terminate(ctx, s.gracePeriod, s.killTimeout)
		if res.Escalated {
			logging.Warn("Supervisor", "%s ignored SIGTERM, killed", name)
		}
		return s.failStarting(name, port, fmt.Errorf("%w after %s", ErrStartupTimeout, spec.StartupTimeout)), nil

	default:
		// Cancelled. The shutdown coordinator owns the process now.
		logging.Debug("Supervisor", "Stopped waiting for %s: %v", name, pollErr)
		return s.stateOf(name), nil
	}
}

// launch allocates a port, starts the child and records it as starting. It
// runs inside the launch window opened by checkStartable, so a concurrent
// shutdown waits until the process is recorded and then stops it.
func (s *Supervisor) launch(name string, spec config.ServiceSpec) (*process.Process, health.Checker, int, error) {
	defer s.state.launches.Done()

	port, err := s.allocator.Allocate(spec.Port, s.portSearchBound)
	if err != nil {
		return nil, nil, 0, err
	}
	if port != spec.Port {
		logging.Warn("Supervisor", "Port %d for %s is in use, using %d instead", spec.Port, name, port)
	}

	proc, err := process.Start(process.Options{
		Name:   name,
		Args:   ports.SubstituteAll(spec.Command, port),
		Dir:    spec.WorkingDir,
		Env:    s.childEnv(spec, port),
		Output: logging.LineWriter(logging.LevelDebug, "service/"+name),
	})
	if err != nil {
		s.allocator.Release(port)
		return nil, nil, 0, err
	}

	checker := s.newChecker(spec, port)
	s.register(name, proc, checker, port)
	return proc, checker, port, nil
}

// checkStartable verifies the service is pending and all its dependencies
// are running; otherwise it moves the service to blocked. On success it opens
// a launch window that launch closes.
func (s *Supervisor) checkStartable(name string) (spec config.ServiceSpec, blocked bool, err error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inst, ok := s.state.instances[name]
	if !ok {
		return spec, false, fmt.Errorf("unknown service %q", name)
	}
	if !s.state.running {
		return spec, false, ErrShuttingDown
	}
	if inst.State != services.StatePending {
		return spec, false, fmt.Errorf("service %s is %s, not pending", name, inst.State)
	}

	for _, dep := range inst.Spec.DependsOn {
		depInst, ok := s.state.instances[dep]
		var reason string
		switch {
		case !ok:
			reason = fmt.Sprintf("dependency %q is not declared", dep)
		case depInst.State != services.StateRunning:
			reason = fmt.Sprintf("dependency %s is %s", dep, depInst.State)
		default:
			continue
		}
		inst.LastError = reason
		_ = s.state.transitionLocked(inst, services.StateBlocked, reason)
		return spec, true, nil
	}

	// Opened while running is known to be true; Shutdown clears running under
	// the same lock before it waits for open launches.
	s.state.launches.Add(1)
	return inst.Spec, false, nil
}

// register moves the instance to starting and records its process.
func (s *Supervisor) register(name string, proc *process.Process, checker health.Checker, port int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inst := s.state.instances[name]
	inst.AssignedPort = port
	inst.PID = proc.PID()
	inst.HealthTarget = checker.Target()
	s.state.procs[name] = proc
	s.state.checkers[name] = checker
	_ = s.state.transitionLocked(inst, services.StateStarting, "")
}

func (s *Supervisor) waitHealthy(ctx context.Context, name string, proc *process.Process, checker health.Checker, timeout time.Duration) error {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stop polling as soon as the child exits.
	go func() {
		select {
		case <-proc.Done():
			cancel()
		case <-pollCtx.Done():
		}
	}()

	target := checker.Target()
	return health.Poll(pollCtx, func(ctx context.Context) error {
		if proc.Exited() {
			return errors.New("process exited")
		}
		return checker.Check(ctx)
	}, health.PollOptions{
		Interval: s.pollInterval,
		Timeout:  timeout,
		OnAttempt: func(attempt int, err error) {
			attrs := []slog.Attr{
				slog.String("service", name),
				slog.Int("attempt", attempt),
				slog.String("target", target),
				slog.Bool("ok", err == nil),
			}
			logging.LogAttrs(logging.LevelDebug, "Supervisor", err, "Startup health probe", attrs...)
		},
	})
}

func (s *Supervisor) markRunning(name string, startedAt time.Time) services.ServiceState {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inst := s.state.instances[name]
	if inst.State != services.StateStarting {
		return inst.State
	}
	now := time.Now()
	inst.StartedAt = now
	inst.RecordHealth(nil, now)
	_ = s.state.transitionLocked(inst, services.StateRunning, "")
	s.metrics.RecordStartup(name, now.Sub(startedAt).Seconds())
	return inst.State
}

func (s *Supervisor) failEarlyExit(ctx context.Context, name string, proc *process.Process, port int) services.ServiceState {
	if st := s.stateOf(name); st != services.StateStarting {
		// Stopped by the shutdown coordinator.
		return st
	}
	reason := fmt.Sprintf("exited during startup with code %d", proc.ExitCode())
	attrs := []slog.Attr{slog.String("service", name), slog.Int("exit_code", proc.ExitCode())}
	if tail := proc.Tail(); len(tail) > 0 {
		attrs = append(attrs, slog.String("output", strings.Join(tail, "\n")))
	}
	logging.LogAttrs(logging.LevelError, "Supervisor", proc.ExitError(), "Service exited before it became healthy", attrs...)

	// Reap leftovers of the process group.
	proc.Terminate(ctx, 0, s.killTimeout)
	return s.failStarting(name, port, errors.New(reason))
}

// failStarting moves a starting instance to failed and clears its process.
// An instance the shutdown coordinator already took over is left alone.
func (s *Supervisor) failStarting(name string, port int, cause error) services.ServiceState {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inst := s.state.instances[name]
	if inst.State != services.StateStarting {
		return inst.State
	}
	inst.PID = 0
	inst.LastError = cause.Error()
	delete(s.state.procs, name)
	delete(s.state.checkers, name)
	s.allocator.Release(port)
	_ = s.state.transitionLocked(inst, services.StateFailed, cause.Error())
	return inst.State
}

func (s *Supervisor) setLastError(name, msg string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if inst, ok := s.state.instances[name]; ok {
		inst.LastError = msg
	}
}

func (s *Supervisor) stateOf(name string) services.ServiceState {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if inst, ok := s.state.instances[name]; ok {
		return inst.State
	}
	return ""
}

// childEnv builds the environment of a child: the base environment, the
// service env with placeholders substituted, and the assigned port.
func (s *Supervisor) childEnv(spec config.ServiceSpec, port int) []string {
	env := s.environ()
	for _, k := range slices.Sorted(maps.Keys(spec.Env)) {
		env = ports.SetEnv(env, k, ports.Substitute(spec.Env[k], port))
	}
	portEnv := spec.PortEnv
	if portEnv == "" {
		portEnv = config.DefaultPortEnv
	}
	return ports.RewriteEnv(env, portEnv, port)
}
