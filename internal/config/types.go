package config

import "time"

// Config is the top-level configuration structure for conductor.
type Config struct {
	// Services is the static registry of manageable services, in declaration
	// order. Declaration order breaks ties in the start sequence.
	Services []ServiceSpec `yaml:"services"`

	// PortSearchBound is how many ports past a declared port the allocator
	// probes when the declared one is taken.
	PortSearchBound int `yaml:"portSearchBound,omitempty"`

	// HealthPollInterval is the startup polling cadence.
	HealthPollInterval time.Duration `yaml:"healthPollInterval,omitempty"`

	// HealthCheckInterval is the steady-state monitoring cadence.
	HealthCheckInterval time.Duration `yaml:"healthCheckInterval,omitempty"`

	// HealthCheckTimeout bounds a single probe unless the service overrides it.
	HealthCheckTimeout time.Duration `yaml:"healthCheckTimeout,omitempty"`

	// GracePeriod is how long a process may take to exit after SIGTERM.
	GracePeriod time.Duration `yaml:"gracePeriod,omitempty"`

	// KillTimeout is how long to wait for a process to be reaped after SIGKILL.
	KillTimeout time.Duration `yaml:"killTimeout,omitempty"`

	Audit        AuditConfig        `yaml:"audit,omitempty"`
	StatusServer StatusServerConfig `yaml:"statusServer,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
}

// ServiceSpec is the static declaration of one manageable process.
type ServiceSpec struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName,omitempty"`

	// Command is the argument vector to execute. Entries may contain the
	// {{port}} placeholder, replaced with the assigned port at launch.
	Command    []string `yaml:"command"`
	WorkingDir string   `yaml:"workingDir,omitempty"`

	// Port is the declared port the service is expected to bind.
	Port int `yaml:"port"`

	// PortEnv names the environment variable that carries the assigned port
	// to the child (default PORT).
	PortEnv string `yaml:"portEnv,omitempty"`

	// Env holds extra environment variables for the child.
	Env map[string]string `yaml:"env,omitempty"`

	HealthCheck HealthCheckSpec `yaml:"healthCheck,omitempty"`

	StartupTimeout time.Duration `yaml:"startupTimeout,omitempty"`

	// DependsOn lists services that must be Running before this one starts.
	DependsOn []string `yaml:"dependsOn,omitempty"`

	// Optional services do not affect the exit code when they fail to start.
	Optional bool `yaml:"optional,omitempty"`
}

// HealthCheckSpec describes how liveness is verified. At most one of URL,
// Command and Postgres may be set; a service with none of them is considered
// healthy as soon as its process is running.
type HealthCheckSpec struct {
	// URL is an HTTP endpoint expected to return 200. It may use the
	// {{port}} placeholder or the literal declared port.
	URL string `yaml:"url,omitempty"`

	// Command is a check command that exits 0 when the service is healthy.
	Command []string `yaml:"command,omitempty"`

	// Postgres is a connection string pinged with pgx.
	Postgres string `yaml:"postgres,omitempty"`

	// Timeout bounds a single probe.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Kind returns the configured health check kind.
func (h HealthCheckSpec) Kind() HealthCheckKind {
	switch {
	case h.URL != "":
		return HealthCheckHTTP
	case len(h.Command) > 0:
		return HealthCheckCommand
	case h.Postgres != "":
		return HealthCheckPostgres
	default:
		return HealthCheckNone
	}
}

// HealthCheckKind enumerates the supported probe types.
type HealthCheckKind string

const (
	HealthCheckNone     HealthCheckKind = "none"
	HealthCheckHTTP     HealthCheckKind = "http"
	HealthCheckCommand  HealthCheckKind = "command"
	HealthCheckPostgres HealthCheckKind = "postgres"
)

// AuditConfig configures the periodic endpoint audit.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Command runs the external audit routine; it must print a JSON report.
	Command    []string `yaml:"command,omitempty"`
	WorkingDir string   `yaml:"workingDir,omitempty"`

	// Interval is the minimum time between two successful audits.
	Interval time.Duration `yaml:"interval,omitempty"`

	// CheckInterval is how often the scheduler evaluates whether to run.
	CheckInterval time.Duration `yaml:"checkInterval,omitempty"`

	// Timeout bounds one audit run.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// CoreService must be healthy for an audit to run.
	CoreService string `yaml:"coreService,omitempty"`

	// A recommendation is logged when efficiency drops below
	// EfficiencyThreshold while more than CleanableThreshold endpoints are
	// cleanable.
	EfficiencyThreshold float64 `yaml:"efficiencyThreshold,omitempty"`
	CleanableThreshold  int     `yaml:"cleanableThreshold,omitempty"`
}

// StatusServerConfig configures the read-only status endpoint.
type StatusServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Service returns the spec with the given name.
func (c Config) Service(name string) (ServiceSpec, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceSpec{}, false
}

// Label returns the display name, falling back to the name.
func (s ServiceSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}
