package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"conductor/internal/orchestrator"
	"conductor/internal/statusserver"
	"conductor/pkg/logging"
)

// Services holds everything a run needs.
type Services struct {
	// Orchestrator owns the fleet.
	Orchestrator *orchestrator.Orchestrator

	// Registry collects the orchestrator metrics plus the Go runtime and
	// process collectors. It backs /metrics of the status server.
	Registry *prometheus.Registry

	// StatusServer is nil unless the status server is enabled.
	StatusServer *statusserver.Server
}

// InitializeServices builds the metrics registry, the orchestrator and, when
// enabled, the status server. Dependency cycles are reported here as
// *dependency.CycleError.
func InitializeServices(cfg *Config) (*Services, error) {
	fleet := *cfg.FleetConfig

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orch, err := orchestrator.New(orchestrator.Options{
		Config:  fleet,
		Metrics: orchestrator.NewMetrics(reg),
	})
	if err != nil {
		return nil, err
	}

	plan := orch.Plan()
	logging.Info("Bootstrap", "Resolved start order: %v", plan.Order)
	for _, b := range plan.Blocked {
		logging.Warn("Bootstrap", "%s can never start: %s", b.Name, b.Reason)
	}

	s := &Services{
		Orchestrator: orch,
		Registry:     reg,
	}
	if fleet.StatusServer.Enabled {
		s.StatusServer = statusserver.New(fleet.StatusServer.Address, orch, reg)
	}
	return s, nil
}
