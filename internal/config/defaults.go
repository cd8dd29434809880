package config

import "time"

const (
	DefaultPortSearchBound     = 100
	DefaultHealthPollInterval  = 2 * time.Second
	DefaultHealthCheckInterval = 5 * time.Minute
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultStartupTimeout      = 30 * time.Second
	DefaultGracePeriod         = 10 * time.Second
	DefaultKillTimeout         = 2 * time.Second
	DefaultPortEnv             = "PORT"

	DefaultAuditInterval      = 30 * time.Minute
	DefaultAuditCheckInterval = time.Minute
	DefaultAuditTimeout       = 2 * time.Minute
	DefaultAuditCoreService   = "backend"

	DefaultEfficiencyThreshold = 80
	DefaultCleanableThreshold  = 5

	DefaultStatusAddress = "127.0.0.1:9321"
)

// GetDefaultConfig returns the built-in fleet with all defaults applied.
func GetDefaultConfig() Config {
	cfg := defaultFleet()
	cfg.ApplyDefaults()
	return cfg
}

// defaultFleet declares a database, the mock blockchain, the LLM server, the
// backend API, the AI system, the frontend and an optional AI gateway.
func defaultFleet() Config {
	return Config{
		Services: []ServiceSpec{
			{
				Name:        "postgres",
				DisplayName: "PostgreSQL",
				Command:     []string{"postgres", "-p", "{{port}}"},
				Port:        5432,
				HealthCheck: HealthCheckSpec{
					Command: []string{"pg_isready", "-h", "localhost", "-p", "{{port}}"},
				},
				StartupTimeout: 30 * time.Second,
			},
			{
				Name:        "blockchain",
				DisplayName: "Mock Blockchain",
				Command:     []string{"python3", "blockchain_service.py"},
				Port:        8545,
				HealthCheck: HealthCheckSpec{URL: "http://localhost:{{port}}/health"},
				Optional:    true,
			},
			{
				Name:           "llm_server",
				DisplayName:    "LLM Inference Server",
				Command:        []string{"python3", "llm_server.py"},
				Port:           8005,
				HealthCheck:    HealthCheckSpec{URL: "http://localhost:{{port}}/health"},
				StartupTimeout: 120 * time.Second, // model loading is slow
			},
			{
				Name:        "backend",
				DisplayName: "Backend API",
				Command:     []string{"python3", "-m", "uvicorn", "main:app", "--port", "{{port}}"},
				WorkingDir:  "backend",
				Port:        8000,
				HealthCheck: HealthCheckSpec{URL: "http://localhost:{{port}}/health"},
				DependsOn:   []string{"postgres"},
			},
			{
				Name:        "ai_system",
				DisplayName: "AI System",
				Command:     []string{"python3", "ai_system.py"},
				Port:        8010,
				HealthCheck: HealthCheckSpec{URL: "http://localhost:{{port}}/health"},
				DependsOn:   []string{"backend", "llm_server"},
			},
			{
				Name:           "frontend",
				DisplayName:    "Frontend",
				Command:        []string{"npm", "run", "dev"},
				WorkingDir:     "frontend",
				Port:           3000,
				HealthCheck:    HealthCheckSpec{URL: "http://localhost:{{port}}/"},
				DependsOn:      []string{"backend", "ai_system"},
				StartupTimeout: 60 * time.Second,
			},
			{
				Name:        "ai_gateway",
				DisplayName: "AI Gateway",
				Command:     []string{"python3", "ai_gateway.py"},
				Port:        8080,
				HealthCheck: HealthCheckSpec{URL: "http://localhost:{{port}}/health"},
				DependsOn:   []string{"llm_server"},
				Optional:    true,
			},
		},
		Audit: AuditConfig{
			Enabled: true,
			Command: []string{"python3", "audit_endpoints.py", "--json"},
		},
	}
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.PortSearchBound == 0 {
		c.PortSearchBound = DefaultPortSearchBound
	}
	if c.HealthPollInterval == 0 {
		c.HealthPollInterval = DefaultHealthPollInterval
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = DefaultHealthCheckTimeout
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.KillTimeout == 0 {
		c.KillTimeout = DefaultKillTimeout
	}

	for i := range c.Services {
		s := &c.Services[i]
		if s.PortEnv == "" {
			s.PortEnv = DefaultPortEnv
		}
		if s.StartupTimeout == 0 {
			s.StartupTimeout = DefaultStartupTimeout
		}
		if s.HealthCheck.Timeout == 0 {
			s.HealthCheck.Timeout = c.HealthCheckTimeout
		}
	}

	if c.Audit.Interval == 0 {
		c.Audit.Interval = DefaultAuditInterval
	}
	if c.Audit.CheckInterval == 0 {
		c.Audit.CheckInterval = DefaultAuditCheckInterval
	}
	if c.Audit.Timeout == 0 {
		c.Audit.Timeout = DefaultAuditTimeout
	}
	if c.Audit.CoreService == "" {
		c.Audit.CoreService = DefaultAuditCoreService
	}
	if c.Audit.EfficiencyThreshold == 0 {
		c.Audit.EfficiencyThreshold = DefaultEfficiencyThreshold
	}
	if c.Audit.CleanableThreshold == 0 {
		c.Audit.CleanableThreshold = DefaultCleanableThreshold
	}

	if c.StatusServer.Address == "" {
		c.StatusServer.Address = DefaultStatusAddress
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
