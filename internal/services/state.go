package services

import (
	"errors"
	"fmt"
)

// ServiceState represents the current state of a service
type ServiceState string

const (
	StatePending  ServiceState = "pending"
	StateBlocked  ServiceState = "blocked"
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateDegraded ServiceState = "degraded"
	StateStopping ServiceState = "stopping"
	StateStopped  ServiceState = "stopped"
	StateFailed   ServiceState = "failed"
)

// AllStates lists every state in lifecycle order.
var AllStates = []ServiceState{
	StatePending,
	StateBlocked,
	StateStarting,
	StateRunning,
	StateDegraded,
	StateStopping,
	StateStopped,
	StateFailed,
}

// ErrInvalidTransition is returned for a state change outside the lifecycle
// graph.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[ServiceState][]ServiceState{
	StatePending:  {StateBlocked, StateStarting, StateFailed},
	StateStarting: {StateRunning, StateFailed, StateStopping},
	StateRunning:  {StateDegraded, StateStopping},
	StateDegraded: {StateRunning, StateStopping},
	StateStopping: {StateStopped},
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to ServiceState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ServiceState) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsLive reports whether a service in state s is expected to own a process
// that serves traffic.
func (s ServiceState) IsLive() bool {
	return s == StateRunning || s == StateDegraded
}

func (s ServiceState) String() string {
	return string(s)
}

// TransitionError wraps ErrInvalidTransition with the offending states.
type TransitionError struct {
	Service string
	From    ServiceState
	To      ServiceState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("service %s: %s -> %s: %v", e.Service, e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// HealthStatus represents the outcome of the most recent health probe
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)
