package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conductor/internal/audit"
	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/health"
	"conductor/internal/ports"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// Options configures an Orchestrator. Only Config is required.
type Options struct {
	Config config.Config

	// Auditor runs the endpoint audit. When nil and the audit is enabled, the
	// configured audit command is used.
	Auditor audit.Auditor

	Allocator *ports.Allocator
	Metrics   *Metrics

	// Environ returns the base environment of every child. Defaults to
	// os.Environ.
	Environ func() []string

	// NewChecker builds the health checker of a service. Defaults to
	// health.NewChecker.
	NewChecker func(spec config.ServiceSpec, port int) health.Checker
}

// Orchestrator starts, monitors, audits and stops one fleet of services.
type Orchestrator struct {
	cfg   config.Config
	runID string
	plan  dependency.Plan

	state      *State
	supervisor *Supervisor
	monitor    *HealthMonitor
	audits     *AuditScheduler
	shutdown   *ShutdownCoordinator

	// loopCtx is cancelled by Shutdown; startup and background loops run
	// under it.
	loopCtx context.Context

	startedAt time.Time
}

// StartupSummary is the outcome of Start.
type StartupSummary struct {
	Running []string
	Failed  []string
	Blocked []string
	// Pending lists services that were not attempted because startup was
	// interrupted.
	Pending []string
	// Incomplete lists non-optional services that did not reach running. After
	// an interruption only failed and blocked services count; services that
	// were never attempted or were stopped while starting do not.
	Incomplete  []string
	Interrupted bool
	Duration    time.Duration
}

// New resolves the dependency graph and prepares the run. A dependency cycle
// is returned as *dependency.CycleError and nothing is started. Services
// with an undeclared dependency are marked blocked right away.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config

	plan, err := dependency.Resolve(dependency.BuildGraph(cfg.Services))
	if err != nil {
		return nil, err
	}

	allocator := opts.Allocator
	if allocator == nil {
		allocator = ports.NewAllocator()
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	newChecker := opts.NewChecker
	if newChecker == nil {
		newChecker = health.NewChecker
	}

	state := NewState(cfg.Services, cfg.Audit.Interval, opts.Metrics)
	state.setStartOrder(plan.Order)
	for _, b := range plan.Blocked {
		state.mu.Lock()
		inst := state.instances[b.Name]
		inst.LastError = b.Reason
		_ = state.transitionLocked(inst, services.StateBlocked, b.Reason)
		state.mu.Unlock()
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cfg:     cfg,
		runID:   uuid.NewString(),
		plan:    plan,
		state:   state,
		loopCtx: loopCtx,
		supervisor: &Supervisor{
			state:           state,
			allocator:       allocator,
			metrics:         opts.Metrics,
			portSearchBound: cfg.PortSearchBound,
			pollInterval:    cfg.HealthPollInterval,
			gracePeriod:     cfg.GracePeriod,
			killTimeout:     cfg.KillTimeout,
			environ:         environ,
			newChecker:      newChecker,
		},
		monitor: &HealthMonitor{
			state:    state,
			interval: cfg.HealthCheckInterval,
			metrics:  opts.Metrics,
		},
		shutdown: newShutdownCoordinator(state, allocator, plan.Levels(), cfg.GracePeriod, cfg.KillTimeout, cancel),
	}

	if cfg.Audit.Enabled {
		auditor := opts.Auditor
		if auditor == nil {
			auditor = &audit.CommandAuditor{
				Args:    cfg.Audit.Command,
				Dir:     cfg.Audit.WorkingDir,
				Env:     environ(),
				Timeout: cfg.Audit.Timeout,
			}
		}
		o.audits = &AuditScheduler{
			state:   state,
			cfg:     cfg.Audit,
			auditor: auditor,
			metrics: opts.Metrics,
		}
	}

	return o, nil
}

// RunID identifies this run in logs, the status endpoint and audit reports.
func (o *Orchestrator) RunID() string { return o.runID }

// Plan returns the resolved start order and the statically blocked services.
func (o *Orchestrator) Plan() dependency.Plan { return o.plan }

// State exposes the run state.
func (o *Orchestrator) State() *State { return o.state }

// Snapshot returns every service in declaration order.
func (o *Orchestrator) Snapshot() []services.Snapshot {
	return o.state.Snapshot()
}

// StartedAt returns when Start was called.
func (o *Orchestrator) StartedAt() time.Time { return o.startedAt }

// Start launches the services one at a time in dependency order, waiting
// for each to pass its health check before the next. It returns an error
// wrapping ErrStartupIncomplete when a non-optional service did not reach
// running. Launch errors of single services are logged and startup
// continues.
//
// Cancelling ctx, or calling Shutdown, interrupts startup; services not yet
// attempted stay pending and the summary is marked interrupted. A service
// that already failed still makes an interrupted startup incomplete.
func (o *Orchestrator) Start(ctx context.Context) (StartupSummary, error) {
	if o.loopCtx.Err() != nil {
		return StartupSummary{}, ErrShuttingDown
	}
	o.startedAt = time.Now()
	o.state.setRunning(true)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.loopCtx, cancel)
	defer stop()

	logging.Info("Orchestrator", "Starting %d services (run %s)", len(o.plan.Order), o.runID)

	interrupted := false
	for _, name := range o.plan.Order {
		if ctx.Err() != nil || !o.state.Running() {
			interrupted = true
			break
		}
		st, err := o.supervisor.Start(ctx, name)
		if err != nil {
			if errors.Is(err, ErrShuttingDown) {
				interrupted = true
				break
			}
			logging.Error("Orchestrator", err, "Failed to start %s", name)
		}
		switch st {
		case services.StateStarting, services.StateStopping, services.StateStopped:
			// Polling was cut short by cancellation or shutdown.
			interrupted = true
		}
		if interrupted {
			break
		}
	}

	if !o.state.Running() {
		// Shutdown began while the last service was coming up.
		interrupted = true
	}

	summary := o.summarize(interrupted)
	logging.Info("Orchestrator", "Startup finished in %s: %d running, %d failed, %d blocked",
		summary.Duration.Round(time.Millisecond), len(summary.Running), len(summary.Failed), len(summary.Blocked))

	if len(summary.Incomplete) > 0 {
		return summary, &IncompleteError{Services: summary.Incomplete}
	}
	return summary, nil
}

func (o *Orchestrator) summarize(interrupted bool) StartupSummary {
	summary := StartupSummary{
		Interrupted: interrupted,
		Duration:    time.Since(o.startedAt),
	}
	for _, snap := range o.state.Snapshot() {
		switch snap.State {
		case services.StateRunning, services.StateDegraded:
			summary.Running = append(summary.Running, snap.Name)
		case services.StateFailed:
			summary.Failed = append(summary.Failed, snap.Name)
		case services.StateBlocked:
			summary.Blocked = append(summary.Blocked, snap.Name)
		case services.StatePending:
			summary.Pending = append(summary.Pending, snap.Name)
		}
		if !snap.Optional && incomplete(snap.State, interrupted) {
			summary.Incomplete = append(summary.Incomplete, snap.Name)
		}
	}
	return summary
}

func incomplete(st services.ServiceState, interrupted bool) bool {
	switch st {
	case services.StateRunning, services.StateDegraded:
		return false
	case services.StateFailed, services.StateBlocked:
		return true
	}
	return !interrupted
}

// Run runs the health monitor and the audit scheduler until ctx is
// cancelled or Shutdown is called.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.state.Running() {
		return ErrShuttingDown
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.loopCtx, cancel)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.monitor.Run(gctx)
	})
	if o.audits != nil {
		g.Go(func() error {
			return o.audits.Run(gctx, o.cfg.Audit.CheckInterval)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("background loops: %w", err)
	}
	return nil
}

// CheckHealth runs one health monitoring tick.
func (o *Orchestrator) CheckHealth(ctx context.Context) {
	o.monitor.Tick(ctx)
}

// MaybeRunAudit evaluates the audit schedule once. It reports
// AuditSkippedNotRunning when the audit is disabled.
func (o *Orchestrator) MaybeRunAudit(ctx context.Context, now time.Time) (AuditOutcome, error) {
	if o.audits == nil {
		return AuditSkippedNotRunning, nil
	}
	return o.audits.MaybeRunAudit(ctx, now)
}

// LastAudit returns when the last successful audit ran and its report.
func (o *Orchestrator) LastAudit() (time.Time, *audit.Report) {
	return o.state.LastAudit()
}

// Shutdown stops every service. It is safe to call more than once and from
// several goroutines.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.shutdown.Shutdown(ctx)
}

// Done is closed once Shutdown has completed.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.shutdown.Done()
}
