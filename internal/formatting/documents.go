package formatting

import (
	"strings"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

// PlanDocument is the structured form of a plan.
type PlanDocument struct {
	Order   []PlanEntry    `json:"order"`
	Blocked []BlockedEntry `json:"blocked,omitempty"`
}

// PlanEntry is one service in start order.
type PlanEntry struct {
	Position    int      `json:"position"`
	Level       int      `json:"level"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Port        int      `json:"port"`
	DependsOn   []string `json:"dependsOn,omitempty"`
	HealthCheck string   `json:"healthCheck"`
	Optional    bool     `json:"optional,omitempty"`
}

// BlockedEntry is a service that can never start.
type BlockedEntry struct {
	Name string `json:"name"`
	// Missing is the direct dependency through which the service is blocked.
	Missing string `json:"missing,omitempty"`
	Reason  string `json:"reason"`
}

// SummaryDocument is the structured form of a startup summary.
type SummaryDocument struct {
	Running     []string            `json:"running"`
	Failed      []string            `json:"failed"`
	Blocked     []string            `json:"blocked"`
	Pending     []string            `json:"pending,omitempty"`
	Incomplete  []string            `json:"incomplete,omitempty"`
	Interrupted bool                `json:"interrupted"`
	DurationMs  int64               `json:"durationMs"`
	Services    []services.Snapshot `json:"services"`
}

// NewPlanDocument builds the structured form of plan.
func NewPlanDocument(cfg config.Config, plan dependency.Plan) PlanDocument {
	levels := make(map[string]int)
	for i, level := range plan.Levels() {
		for _, name := range level {
			levels[name] = i
		}
	}

	doc := PlanDocument{}
	for i, name := range plan.Order {
		spec, _ := cfg.Service(name)
		doc.Order = append(doc.Order, PlanEntry{
			Position:    i + 1,
			Level:       levels[name],
			Name:        name,
			DisplayName: spec.Label(),
			Port:        spec.Port,
			DependsOn:   spec.DependsOn,
			HealthCheck: describeHealthCheck(spec.HealthCheck),
			Optional:    spec.Optional,
		})
	}
	for _, b := range plan.Blocked {
		doc.Blocked = append(doc.Blocked, BlockedEntry{Name: b.Name, Missing: b.Missing, Reason: b.Reason})
	}
	return doc
}

// NewSummaryDocument builds the structured form of a startup summary.
func NewSummaryDocument(summary orchestrator.StartupSummary, snaps []services.Snapshot) SummaryDocument {
	return SummaryDocument{
		Running:     summary.Running,
		Failed:      summary.Failed,
		Blocked:     summary.Blocked,
		Pending:     summary.Pending,
		Incomplete:  summary.Incomplete,
		Interrupted: summary.Interrupted,
		DurationMs:  summary.Duration.Milliseconds(),
		Services:    snaps,
	}
}

func describeHealthCheck(hc config.HealthCheckSpec) string {
	switch hc.Kind() {
	case config.HealthCheckHTTP:
		return "GET " + hc.URL
	case config.HealthCheckCommand:
		return strings.Join(hc.Command, " ")
	case config.HealthCheckPostgres:
		return "postgres ping"
	default:
		return "process running"
	}
}
