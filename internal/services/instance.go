package services

import (
	"time"

	"conductor/internal/config"
)

// ServiceInstance is the runtime record of one managed service.
type ServiceInstance struct {
	Spec config.ServiceSpec

	State ServiceState

	// PID of the live process; 0 when none is running.
	PID int

	// AssignedPort is fixed once the instance enters StateStarting.
	AssignedPort int

	// HealthTarget is the health check target after port rewriting.
	HealthTarget string

	StartedAt time.Time

	LastHealthCheckAt         time.Time
	LastHealthOK              bool
	LastHealthError           string
	ConsecutiveHealthFailures int

	// LastError explains why the instance is blocked or failed.
	LastError string

	// StateChangedAt is when State last changed.
	StateChangedAt time.Time
}

// NewInstance returns a pending instance for spec.
func NewInstance(spec config.ServiceSpec) *ServiceInstance {
	return &ServiceInstance{
		Spec:           spec,
		State:          StatePending,
		StateChangedAt: time.Now(),
	}
}

// Name returns the service name.
func (i *ServiceInstance) Name() string {
	return i.Spec.Name
}

// Transition moves the instance to state to, or returns a *TransitionError
// and leaves it unchanged.
func (i *ServiceInstance) Transition(to ServiceState, now time.Time) error {
	if !CanTransition(i.State, to) {
		return &TransitionError{Service: i.Spec.Name, From: i.State, To: to}
	}
	i.State = to
	i.StateChangedAt = now
	return nil
}

// HasProcess reports whether the instance holds a live PID.
func (i *ServiceInstance) HasProcess() bool {
	return i.PID != 0
}

// RecordHealth stores the outcome of a probe. A success resets the failure
// counter.
func (i *ServiceInstance) RecordHealth(err error, at time.Time) {
	i.LastHealthCheckAt = at
	if err == nil {
		i.LastHealthOK = true
		i.LastHealthError = ""
		i.ConsecutiveHealthFailures = 0
		return
	}
	i.LastHealthOK = false
	i.LastHealthError = err.Error()
	i.ConsecutiveHealthFailures++
}

// Health returns the outcome of the most recent probe.
func (i *ServiceInstance) Health() HealthStatus {
	switch {
	case i.LastHealthCheckAt.IsZero():
		return HealthUnknown
	case i.LastHealthOK:
		return HealthHealthy
	default:
		return HealthUnhealthy
	}
}

// Snapshot returns a copy safe to hand to other goroutines.
func (i *ServiceInstance) Snapshot() Snapshot {
	return Snapshot{
		Name:                      i.Spec.Name,
		DisplayName:               i.Spec.Label(),
		State:                     i.State,
		Optional:                  i.Spec.Optional,
		DeclaredPort:              i.Spec.Port,
		AssignedPort:              i.AssignedPort,
		PID:                       i.PID,
		HealthTarget:              i.HealthTarget,
		Health:                    i.Health(),
		LastHealthError:           i.LastHealthError,
		ConsecutiveHealthFailures: i.ConsecutiveHealthFailures,
		LastError:                 i.LastError,
		StartedAt:                 i.StartedAt,
		LastHealthCheckAt:         i.LastHealthCheckAt,
		StateChangedAt:            i.StateChangedAt,
	}
}

// Snapshot is a point-in-time view of a ServiceInstance.
type Snapshot struct {
	Name                      string       `json:"name"`
	DisplayName               string       `json:"displayName"`
	State                     ServiceState `json:"state"`
	Optional                  bool         `json:"optional,omitempty"`
	DeclaredPort              int          `json:"declaredPort"`
	AssignedPort              int          `json:"assignedPort,omitempty"`
	PID                       int          `json:"pid,omitempty"`
	HealthTarget              string       `json:"healthTarget,omitempty"`
	Health                    HealthStatus `json:"health"`
	LastHealthError           string       `json:"lastHealthError,omitempty"`
	ConsecutiveHealthFailures int          `json:"consecutiveHealthFailures"`
	LastError                 string       `json:"lastError,omitempty"`
	StartedAt                 time.Time    `json:"startedAt,omitempty"`
	LastHealthCheckAt         time.Time    `json:"lastHealthCheckAt,omitempty"`
	StateChangedAt            time.Time    `json:"stateChangedAt"`
}

// PortReassigned reports whether the service runs on another port than the
// one it declared.
func (s Snapshot) PortReassigned() bool {
	return s.AssignedPort != 0 && s.AssignedPort != s.DeclaredPort
}
