// Package formatting renders the run plan, the startup summary and service
// snapshots for the command line, as tables, JSON or YAML.
package formatting

import (
	"fmt"
	"io"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat converts a flag value to an OutputFormat. The empty string
// selects FormatTable.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (must be table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// Formatter writes the views produced by the commands.
type Formatter interface {
	// FormatPlan writes the resolved start order and the blocked services.
	FormatPlan(w io.Writer, cfg config.Config, plan dependency.Plan) error

	// FormatSummary writes the outcome of startup with one row per service.
	FormatSummary(w io.Writer, summary orchestrator.StartupSummary, snaps []services.Snapshot) error

	// FormatServices writes service snapshots.
	FormatServices(w io.Writer, snaps []services.Snapshot) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
