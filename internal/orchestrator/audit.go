package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"conductor/internal/audit"
	"conductor/internal/config"
	"conductor/pkg/logging"
)

// AuditOutcome is the decision taken by one MaybeRunAudit call.
type AuditOutcome string

const (
	AuditRan               AuditOutcome = "ran"
	AuditFailed            AuditOutcome = "failed"
	AuditSkippedNotDue     AuditOutcome = "not_due"
	AuditSkippedCoreDown   AuditOutcome = "core_unavailable"
	AuditSkippedNotRunning AuditOutcome = "not_running"
)

// AuditScheduler runs the endpoint audit when it is due and the core service
// is healthy.
type AuditScheduler struct {
	state   *State
	cfg     config.AuditConfig
	auditor audit.Auditor
	metrics *Metrics
}

// MaybeRunAudit runs the audit if at least the audit interval has passed
// since the last successful run and the core service has a live process that
// passes a fresh health probe. Skips and failures leave the last audit time
// unchanged. A failed run returns *AuditUnavailableError.
func (a *AuditScheduler) MaybeRunAudit(ctx context.Context, now time.Time) (AuditOutcome, error) {
	outcome, report, err := a.maybeRun(ctx, now)
	efficiency := 0.0
	if report != nil {
		efficiency = report.EfficiencyPercentage
	}
	a.metrics.RecordAudit(outcome, efficiency)
	return outcome, err
}

func (a *AuditScheduler) maybeRun(ctx context.Context, now time.Time) (AuditOutcome, *audit.Report, error) {
	if !a.state.Running() {
		return AuditSkippedNotRunning, nil, nil
	}

	last, _ := a.state.LastAudit()
	if !last.IsZero() && now.Sub(last) < a.state.auditInterval {
		logging.Debug("AuditScheduler", "Audit not due, last run %s ago", now.Sub(last).Round(time.Second))
		return AuditSkippedNotDue, nil, nil
	}

	if reason := a.coreUnavailable(ctx); reason != "" {
		logging.Info("AuditScheduler", "Skipping audit: %s", reason)
		return AuditSkippedCoreDown, nil, nil
	}

	logging.Info("AuditScheduler", "Running endpoint audit")
	report, err := a.auditor.Audit(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return AuditSkippedNotRunning, nil, nil
		}
		logging.Error("AuditScheduler", err, "Audit failed")
		return AuditFailed, nil, &AuditUnavailableError{Err: err}
	}

	report.RunID = uuid.NewString()
	a.state.mu.Lock()
	a.state.lastAuditAt = now
	a.state.lastAudit = &report
	a.state.mu.Unlock()

	logging.LogAttrs(logging.LevelInfo, "AuditScheduler", nil, "Audit completed",
		slog.String("audit_id", report.RunID),
		slog.Int("total_endpoints", report.TotalEndpoints),
		slog.Int("functional_endpoints", report.FunctionalEndpoints),
		slog.Int("cleanable_endpoints", report.CleanableEndpoints),
		slog.Float64("efficiency_percentage", report.EfficiencyPercentage),
	)

	if report.NeedsCleanup(a.cfg.EfficiencyThreshold, a.cfg.CleanableThreshold) {
		msg := "Endpoint cleanup recommended"
		attrs := []slog.Attr{
			slog.Float64("efficiency_percentage", report.EfficiencyPercentage),
			slog.Int("cleanable_endpoints", report.CleanableEndpoints),
		}
		if len(report.Recommendations) > 0 {
			attrs = append(attrs, slog.String("recommendations", strings.Join(report.Recommendations, "; ")))
		}
		logging.LogAttrs(logging.LevelWarn, "AuditScheduler", nil, msg, attrs...)
	}

	return AuditRan, &report, nil
}

// coreUnavailable returns why the core service cannot be audited, or "".
func (a *AuditScheduler) coreUnavailable(ctx context.Context) string {
	name := a.cfg.CoreService

	a.state.mu.Lock()
	inst, ok := a.state.instances[name]
	if !ok {
		a.state.mu.Unlock()
		return name + " is not declared"
	}
	st := inst.State
	hasPID := inst.HasProcess()
	proc := a.state.procs[name]
	checker := a.state.checkers[name]
	a.state.mu.Unlock()

	if !st.IsLive() || !hasPID || (proc != nil && proc.Exited()) {
		return name + " has no live process (" + string(st) + ")"
	}
	if checker == nil {
		return ""
	}
	if err := checker.Check(ctx); err != nil {
		return name + " failed its health probe: " + err.Error()
	}
	return ""
}

// Run evaluates the schedule every interval until ctx is cancelled or the
// orchestrator stops running.
func (a *AuditScheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if !a.state.Running() {
				return nil
			}
			_, _ = a.MaybeRunAudit(ctx, now)
		}
	}
}
