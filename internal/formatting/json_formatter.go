package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) FormatPlan(w io.Writer, cfg config.Config, plan dependency.Plan) error {
	return f.write(w, NewPlanDocument(cfg, plan))
}

func (f *JSONFormatter) FormatSummary(w io.Writer, summary orchestrator.StartupSummary, snaps []services.Snapshot) error {
	return f.write(w, NewSummaryDocument(summary, snaps))
}

func (f *JSONFormatter) FormatServices(w io.Writer, snaps []services.Snapshot) error {
	if snaps == nil {
		snaps = []services.Snapshot{}
	}
	return f.write(w, snaps)
}

func (f *JSONFormatter) write(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
