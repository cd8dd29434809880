package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
	"conductor/internal/services"
)

// maxNoteLength truncates the last error shown in tables.
const maxNoteLength = 60

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{options: options}
}

// FormatPlan writes one row per service in start order, then the services
// that can never start.
func (f *TableFormatter) FormatPlan(w io.Writer, cfg config.Config, plan dependency.Plan) error {
	doc := NewPlanDocument(cfg, plan)

	t := f.createTable("Start order")
	t.AppendHeader(f.header("#", "LEVEL", "SERVICE", "PORT", "DEPENDS ON", "HEALTH CHECK"))
	for _, e := range doc.Order {
		name := e.Name
		if e.Optional {
			name += " (optional)"
		}
		t.AppendRow(table.Row{e.Position, e.Level, name, e.Port, dashIfEmpty(strings.Join(e.DependsOn, ", ")), e.HealthCheck})
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	if len(doc.Blocked) == 0 {
		return nil
	}
	bt := f.createTable("Blocked")
	bt.AppendHeader(f.header("SERVICE", "REASON"))
	for _, b := range doc.Blocked {
		bt.AppendRow(table.Row{f.colorize(text.FgRed, b.Name), b.Reason})
	}
	_, err := fmt.Fprintln(w, bt.Render())
	return err
}

// FormatSummary writes the service table followed by a one-line total.
func (f *TableFormatter) FormatSummary(w io.Writer, summary orchestrator.StartupSummary, snaps []services.Snapshot) error {
	if err := f.FormatServices(w, snaps); err != nil {
		return err
	}

	line := fmt.Sprintf("%d running, %d failed, %d blocked in %s",
		len(summary.Running), len(summary.Failed), len(summary.Blocked), summary.Duration.Round(time.Millisecond))
	if len(summary.Pending) > 0 {
		line += fmt.Sprintf(", %d not attempted", len(summary.Pending))
	}
	switch {
	case summary.Interrupted:
		line = f.colorize(text.FgYellow, "Startup interrupted: "+line)
	case len(summary.Incomplete) > 0:
		line = f.colorize(text.FgRed, "Startup incomplete: "+line)
	default:
		line = f.colorize(text.FgGreen, "Startup complete: "+line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// FormatServices writes one row per service.
func (f *TableFormatter) FormatServices(w io.Writer, snaps []services.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, f.colorize(text.FgYellow, "No services declared"))
		return err
	}

	t := f.createTable("")
	t.AppendHeader(f.header("SERVICE", "STATE", "PORT", "PID", "HEALTH", "NOTE"))
	for _, s := range snaps {
		t.AppendRow(table.Row{
			s.Name,
			f.colorize(stateColor(s.State), string(s.State)),
			portCell(s),
			pidCell(s.PID),
			string(s.Health),
			note(s),
		})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func (f *TableFormatter) header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = f.colorize(text.FgHiCyan, c)
	}
	return row
}

func (f *TableFormatter) colorize(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func stateColor(s services.ServiceState) text.Color {
	switch s {
	case services.StateRunning:
		return text.FgGreen
	case services.StateDegraded, services.StateStarting, services.StateStopping:
		return text.FgYellow
	case services.StateFailed, services.StateBlocked:
		return text.FgRed
	default:
		return text.FgWhite
	}
}

func portCell(s services.Snapshot) string {
	if s.PortReassigned() {
		return fmt.Sprintf("%d (declared %d)", s.AssignedPort, s.DeclaredPort)
	}
	if s.AssignedPort != 0 {
		return fmt.Sprint(s.AssignedPort)
	}
	return fmt.Sprint(s.DeclaredPort)
}

func pidCell(pid int) string {
	if pid == 0 {
		return "-"
	}
	return fmt.Sprint(pid)
}

func note(s services.Snapshot) string {
	msg := s.LastError
	if s.State.IsLive() {
		msg = s.LastHealthError
	}
	if msg == "" && s.Optional {
		msg = "optional"
	}
	return dashIfEmpty(truncate(msg, maxNoteLength))
}
