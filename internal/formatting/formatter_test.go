package formatting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

func defaultPlan(t *testing.T) (config.Config, dependency.Plan) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	plan, err := dependency.Resolve(dependency.BuildGraph(cfg.Services))
	require.NoError(t, err)
	return cfg, plan
}

func sampleSnapshots() []services.Snapshot {
	return []services.Snapshot{
		{Name: "postgres", State: services.StateRunning, DeclaredPort: 5432, AssignedPort: 5432, PID: 4242, Health: services.HealthHealthy},
		{Name: "backend", State: services.StateRunning, DeclaredPort: 8000, AssignedPort: 8001, PID: 4243, Health: services.HealthHealthy},
		{Name: "frontend", State: services.StateBlocked, DeclaredPort: 3000, LastError: "dependency ai_system is failed"},
		{Name: "ai_gateway", State: services.StateFailed, DeclaredPort: 8080, Optional: true, LastError: "exited during startup with code 1"},
	}
}

func sampleSummary() orchestrator.StartupSummary {
	return orchestrator.StartupSummary{
		Running:    []string{"postgres", "backend"},
		Failed:     []string{"ai_gateway"},
		Blocked:    []string{"frontend"},
		Incomplete: []string{"frontend"},
		Duration:   1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatTable, "table": FormatTable, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestNewSelectsFormatter(t *testing.T) {
	assert.IsType(t, &TableFormatter{}, New(Options{}))
	assert.IsType(t, &JSONFormatter{}, New(Options{Format: FormatJSON}))
	assert.IsType(t, &YAMLFormatter{}, New(Options{Format: FormatYAML}))
}

func TestTablePlan(t *testing.T) {
	cfg, plan := defaultPlan(t)

	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatTable}).FormatPlan(&buf, cfg, plan))
	out := buf.String()

	assert.Contains(t, out, "Start order")
	assert.Contains(t, out, "ai_gateway (optional)")
	assert.Contains(t, out, "GET http://localhost:{{port}}/health")
	assert.NotContains(t, out, "Blocked")
	assert.NotContains(t, out, "\x1b[", "no color codes without Color")

	// postgres is listed before backend.
	assert.Less(t, strings.Index(out, "postgres"), strings.Index(out, "backend"))
}

func TestTablePlanBlocked(t *testing.T) {
	cfg := config.Config{Services: []config.ServiceSpec{
		{Name: "backend", Port: 8000, DependsOn: []string{"redis"}},
		{Name: "frontend", Port: 3000},
	}}
	plan, err := dependency.Resolve(dependency.BuildGraph(cfg.Services))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(Options{}).FormatPlan(&buf, cfg, plan))
	out := buf.String()
	assert.Contains(t, out, "Blocked")
	assert.Contains(t, out, "redis")
}

func TestTableSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).FormatSummary(&buf, sampleSummary(), sampleSnapshots()))
	out := buf.String()

	assert.Contains(t, out, "8001 (declared 8000)")
	assert.Contains(t, out, "4242")
	assert.Contains(t, out, "dependency ai_system is failed")
	assert.Contains(t, out, "Startup incomplete: 2 running, 1 failed, 1 blocked in 1.5s")
}

func TestTableSummaryComplete(t *testing.T) {
	var buf bytes.Buffer
	summary := sampleSummary()
	summary.Incomplete = nil
	require.NoError(t, New(Options{Color: true}).FormatSummary(&buf, summary, sampleSnapshots()))
	assert.Contains(t, buf.String(), "Startup complete")
}

func TestTableServicesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).FormatServices(&buf, nil))
	assert.Equal(t, "No services declared\n", buf.String())
}

func TestJSONPlan(t *testing.T) {
	cfg, plan := defaultPlan(t)

	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatPlan(&buf, cfg, plan))

	var doc PlanDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Order, len(cfg.Services))
	assert.Equal(t, "postgres", doc.Order[0].Name)
	assert.Equal(t, 1, doc.Order[0].Position)
	assert.Equal(t, 0, doc.Order[0].Level)
	assert.Empty(t, doc.Blocked)

	for _, e := range doc.Order {
		if e.Name == "frontend" {
			assert.Equal(t, 3, e.Level)
			assert.Equal(t, []string{"backend", "ai_system"}, e.DependsOn)
		}
	}
}

func TestJSONSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatSummary(&buf, sampleSummary(), sampleSnapshots()))

	var doc SummaryDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, int64(1500), doc.DurationMs)
	assert.Equal(t, []string{"frontend"}, doc.Incomplete)
	require.Len(t, doc.Services, 4)
	assert.Equal(t, 8001, doc.Services[1].AssignedPort)
}

func TestJSONServicesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatServices(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestYAMLSummaryKeepsJSONNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatYAML}).FormatSummary(&buf, sampleSummary(), sampleSnapshots()))
	out := buf.String()

	assert.Contains(t, out, "assignedPort: 8001")
	assert.Contains(t, out, "durationMs: 1500")
	assert.NotContains(t, out, "{", "expected block style")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["interrupted"])
	assert.Len(t, decoded["services"], 4)

	// running is listed before failed, as in the struct.
	assert.Less(t, strings.Index(out, "running:"), strings.Index(out, "failed:"))
}
