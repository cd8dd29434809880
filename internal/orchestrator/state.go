package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"conductor/internal/audit"
	"conductor/internal/config"
	"conductor/internal/health"
	"conductor/internal/process"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// State is the single source of truth of a run. Every field is guarded by
// mu, which is held for one read-modify-write at a time and never across
// network or process I/O.
type State struct {
	mu sync.Mutex

	instances map[string]*services.ServiceInstance
	names     []string // declaration order

	// Live process handles and the checker built for the assigned port.
	procs    map[string]*process.Process
	checkers map[string]health.Checker

	startOrder []string
	running    bool

	// launches counts supervisor launches between the running check and the
	// moment the new process is recorded in procs.
	launches sync.WaitGroup

	auditInterval time.Duration
	lastAuditAt   time.Time
	lastAudit     *audit.Report

	metrics *Metrics
}

// NewState creates a state with one pending instance per spec.
func NewState(specs []config.ServiceSpec, auditInterval time.Duration, metrics *Metrics) *State {
	s := &State{
		instances:     make(map[string]*services.ServiceInstance, len(specs)),
		procs:         make(map[string]*process.Process),
		checkers:      make(map[string]health.Checker),
		auditInterval: auditInterval,
		metrics:       metrics,
	}
	for _, spec := range specs {
		s.names = append(s.names, spec.Name)
		s.instances[spec.Name] = services.NewInstance(spec)
		metrics.RecordState(spec.Name, services.StatePending)
	}
	return s
}

// transitionLocked changes the state of inst and logs the change. mu must be
// held.
func (s *State) transitionLocked(inst *services.ServiceInstance, to services.ServiceState, reason string) error {
	from := inst.State
	if err := inst.Transition(to, time.Now()); err != nil {
		logging.Error("Orchestrator", err, "Rejected state change")
		return err
	}

	attrs := []slog.Attr{
		slog.String("service", inst.Name()),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	}
	if inst.AssignedPort != 0 {
		attrs = append(attrs, slog.Int("port", inst.AssignedPort))
	}
	if inst.PID != 0 {
		attrs = append(attrs, slog.Int("pid", inst.PID))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}

	level := logging.LevelInfo
	switch to {
	case services.StateFailed, services.StateBlocked:
		level = logging.LevelError
	case services.StateDegraded:
		level = logging.LevelWarn
	}
	logging.LogAttrs(level, "Orchestrator", nil, "Service state changed", attrs...)

	s.metrics.RecordTransition(inst.Name(), to)
	return nil
}

// Transition changes the state of the named service.
func (s *State) Transition(name string, to services.ServiceState, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	return s.transitionLocked(inst, to, reason)
}

// Instance returns a snapshot of the named service.
func (s *State) Instance(name string) (services.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[name]
	if !ok {
		return services.Snapshot{}, false
	}
	return inst.Snapshot(), true
}

// Snapshot returns every service in declaration order.
func (s *State) Snapshot() []services.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]services.Snapshot, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.instances[name].Snapshot())
	}
	return out
}

// Running reports whether the orchestrator accepts new work.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *State) setRunning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = v
}

// StartOrder returns the resolved start order.
func (s *State) StartOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.startOrder...)
}

func (s *State) setStartOrder(order []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startOrder = append([]string(nil), order...)
}

// LastAudit returns when the last successful audit ran and its report.
func (s *State) LastAudit() (time.Time, *audit.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAudit == nil {
		return s.lastAuditAt, nil
	}
	r := *s.lastAudit
	return s.lastAuditAt, &r
}

// LivePIDs returns the PID of every instance that holds one.
func (s *State) LivePIDs() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int)
	for name, inst := range s.instances {
		if inst.PID != 0 {
			out[name] = inst.PID
		}
	}
	return out
}
