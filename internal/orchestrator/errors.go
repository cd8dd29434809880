package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStartupIncomplete is returned by Start when a non-optional service
	// did not reach the running state.
	ErrStartupIncomplete = errors.New("startup incomplete")

	// ErrStartupTimeout is recorded on a service whose health check did not
	// pass within its startup timeout.
	ErrStartupTimeout = errors.New("startup timeout")

	// ErrShuttingDown is returned when work is requested after shutdown began.
	ErrShuttingDown = errors.New("orchestrator is shutting down")
)

// IncompleteError lists the services that kept startup from completing.
type IncompleteError struct {
	Services []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: %s did not reach running", ErrStartupIncomplete, strings.Join(e.Services, ", "))
}

func (e *IncompleteError) Unwrap() error { return ErrStartupIncomplete }

// AuditUnavailableError is returned when the audit routine could not produce
// a report.
type AuditUnavailableError struct {
	Err error
}

func (e *AuditUnavailableError) Error() string {
	return fmt.Sprintf("audit unavailable: %v", e.Err)
}

func (e *AuditUnavailableError) Unwrap() error { return e.Err }
