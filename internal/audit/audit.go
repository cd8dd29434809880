// Package audit runs the external endpoint audit routine and parses its
// report.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one audit run when none is configured.
const DefaultTimeout = 2 * time.Minute

// Report is the result of one audit run.
type Report struct {
	RunID                string    `json:"runId,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
	TotalEndpoints       int       `json:"totalEndpoints"`
	FunctionalEndpoints  int       `json:"functionalEndpoints"`
	CleanableEndpoints   int       `json:"cleanableEndpoints"`
	EfficiencyPercentage float64   `json:"efficiencyPercentage"`
	Recommendations      []string  `json:"recommendations,omitempty"`
}

// NeedsCleanup reports whether the report warrants a cleanup advisory.
func (r Report) NeedsCleanup(efficiencyThreshold float64, cleanableThreshold int) bool {
	return r.EfficiencyPercentage < efficiencyThreshold && r.CleanableEndpoints > cleanableThreshold
}

// Auditor runs one audit.
type Auditor interface {
	Audit(ctx context.Context) (Report, error)
}

// CommandAuditor runs an external command that prints a JSON report on
// stdout.
type CommandAuditor struct {
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Audit runs the command. A non-zero exit status or output without a valid
// report is an error.
func (a *CommandAuditor) Audit(ctx context.Context) (Report, error) {
	if len(a.Args) == 0 {
		return Report{}, errors.New("no audit command configured")
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.Args[0], a.Args[1:]...)
	cmd.Dir = a.Dir
	cmd.Env = a.Env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Report{}, fmt.Errorf("audit timed out after %s", timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Report{}, fmt.Errorf("audit command failed: %w: %s", err, lastLine(msg))
		}
		return Report{}, fmt.Errorf("audit command failed: %w", err)
	}

	return Parse(stdout.Bytes(), time.Now())
}

// rawReport is the wire format of the audit routine.
type rawReport struct {
	Timestamp            *time.Time `json:"timestamp"`
	TotalEndpoints       *int       `json:"total_endpoints"`
	FunctionalEndpoints  int        `json:"functional_endpoints"`
	CleanableEndpoints   int        `json:"cleanable_endpoints"`
	EfficiencyPercentage *float64   `json:"efficiency_percentage"`
	Recommendations      []string   `json:"recommendations"`
}

// Parse extracts a report from the audit output. Log lines before the JSON
// object are ignored. When efficiency_percentage is missing it is derived
// from functional/total; now is used when timestamp is missing.
func Parse(output []byte, now time.Time) (Report, error) {
	start := bytes.IndexByte(output, '{')
	end := bytes.LastIndexByte(output, '}')
	if start < 0 || end < start {
		return Report{}, errors.New("audit output contains no JSON report")
	}

	var raw rawReport
	if err := json.Unmarshal(output[start:end+1], &raw); err != nil {
		return Report{}, fmt.Errorf("parsing audit report: %w", err)
	}
	if raw.TotalEndpoints == nil {
		return Report{}, errors.New("audit report is missing total_endpoints")
	}

	r := Report{
		Timestamp:           now,
		TotalEndpoints:      *raw.TotalEndpoints,
		FunctionalEndpoints: raw.FunctionalEndpoints,
		CleanableEndpoints:  raw.CleanableEndpoints,
		Recommendations:     raw.Recommendations,
	}
	if raw.Timestamp != nil {
		r.Timestamp = *raw.Timestamp
	}
	switch {
	case raw.EfficiencyPercentage != nil:
		r.EfficiencyPercentage = *raw.EfficiencyPercentage
	case r.TotalEndpoints > 0:
		r.EfficiencyPercentage = float64(r.FunctionalEndpoints) / float64(r.TotalEndpoints) * 100
	}
	return r, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
