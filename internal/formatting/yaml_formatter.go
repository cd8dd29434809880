package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatPlan(w io.Writer, cfg config.Config, plan dependency.Plan) error {
	return f.write(w, NewPlanDocument(cfg, plan))
}

func (f *YAMLFormatter) FormatSummary(w io.Writer, summary orchestrator.StartupSummary, snaps []services.Snapshot) error {
	return f.write(w, NewSummaryDocument(summary, snaps))
}

func (f *YAMLFormatter) FormatServices(w io.Writer, snaps []services.Snapshot) error {
	if snaps == nil {
		snaps = []services.Snapshot{}
	}
	return f.write(w, snaps)
}

// write encodes v through JSON first so types that only carry JSON tags
// keep their field names and field order.
func (f *YAMLFormatter) write(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow style the JSON input was parsed with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
