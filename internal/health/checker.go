package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"conductor/internal/config"
	"conductor/internal/ports"
)

// DefaultTimeout bounds a single probe when the checker has none configured.
const DefaultTimeout = 5 * time.Second

// Checker probes one service.
type Checker interface {
	// Check returns nil when the service is healthy.
	Check(ctx context.Context) error
	// Target describes what is probed, for logs and snapshots.
	Target() string
}

// HTTPChecker expects a 200 response to a GET on URL.
type HTTPChecker struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func (c *HTTPChecker) Target() string { return c.URL }

func (c *HTTPChecker) Check(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.URL)
	}
	return nil
}

// CommandChecker runs Args and expects exit status 0.
type CommandChecker struct {
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (c *CommandChecker) Target() string { return strings.Join(c.Args, " ") }

func (c *CommandChecker) Check(ctx context.Context) error {
	if len(c.Args) == 0 {
		return errors.New("empty health check command")
	}
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, truncate(msg, 200))
		}
		return err
	}
	return nil
}

// PostgresChecker opens a pool on DSN and pings it.
type PostgresChecker struct {
	DSN     string
	Timeout time.Duration
}

// Target hides credentials embedded in the DSN.
func (c *PostgresChecker) Target() string {
	if at := strings.LastIndex(c.DSN, "@"); at >= 0 {
		if scheme := strings.Index(c.DSN, "://"); scheme >= 0 && scheme < at {
			return c.DSN[:scheme+3] + "***" + c.DSN[at:]
		}
	}
	return c.DSN
}

func (c *PostgresChecker) Check(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// AlwaysHealthy is used for services without a health check. Liveness of
// the process itself is tracked by the supervisor.
type AlwaysHealthy struct{}

func (AlwaysHealthy) Target() string { return "process" }

func (AlwaysHealthy) Check(ctx context.Context) error { return ctx.Err() }

// NewChecker builds the checker for spec, with every target rewritten to the
// assigned port.
func NewChecker(spec config.ServiceSpec, assignedPort int) Checker {
	hc := spec.HealthCheck
	switch hc.Kind() {
	case config.HealthCheckHTTP:
		return &HTTPChecker{
			URL:     ports.RewriteURL(hc.URL, spec.Port, assignedPort),
			Timeout: hc.Timeout,
		}
	case config.HealthCheckCommand:
		return &CommandChecker{
			Args:    ports.SubstituteAll(hc.Command, assignedPort),
			Dir:     spec.WorkingDir,
			Timeout: hc.Timeout,
		}
	case config.HealthCheckPostgres:
		return &PostgresChecker{
			DSN:     ports.RewriteURL(hc.Postgres, spec.Port, assignedPort),
			Timeout: hc.Timeout,
		}
	default:
		return AlwaysHealthy{}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
