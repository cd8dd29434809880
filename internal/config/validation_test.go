package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{
		Services: []ServiceSpec{
			{Name: "db", Command: []string{"db"}, Port: 5432},
			{Name: "backend", Command: []string{"api"}, Port: 8000, DependsOn: []string{"db"}},
		},
		Audit: AuditConfig{Enabled: true, Command: []string{"audit"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_DefaultConfig(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{
			name:      "no services",
			mutate:    func(c *Config) { c.Services = nil; c.Audit.Enabled = false },
			wantField: "services",
		},
		{
			name:      "duplicate name",
			mutate:    func(c *Config) { c.Services[1].Name = "db" },
			wantField: "services[db].name",
		},
		{
			name:      "name with spaces",
			mutate:    func(c *Config) { c.Services[0].Name = "my db" },
			wantField: "services[my db].name",
		},
		{
			name:      "empty command",
			mutate:    func(c *Config) { c.Services[0].Command = nil },
			wantField: "services[db].command",
		},
		{
			name:      "port out of range",
			mutate:    func(c *Config) { c.Services[0].Port = 0 },
			wantField: "services[db].port",
		},
		{
			name: "two health check kinds",
			mutate: func(c *Config) {
				c.Services[0].HealthCheck.URL = "http://localhost:5432"
				c.Services[0].HealthCheck.Command = []string{"pg_isready"}
			},
			wantField: "services[db].healthCheck",
		},
		{
			name:      "negative startup timeout",
			mutate:    func(c *Config) { c.Services[0].StartupTimeout = -time.Second },
			wantField: "services[db].startupTimeout",
		},
		{
			name:      "negative search bound",
			mutate:    func(c *Config) { c.PortSearchBound = -1 },
			wantField: "portSearchBound",
		},
		{
			name:      "audit without command",
			mutate:    func(c *Config) { c.Audit.Command = nil },
			wantField: "audit.command",
		},
		{
			name:      "audit core service unknown",
			mutate:    func(c *Config) { c.Audit.CoreService = "gateway" },
			wantField: "audit.coreService",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantField: "logging.level",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))

			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField, "got: %s", strings.Join(fields, ", "))
		})
	}
}

func TestValidate_MissingDependencyIsNotAValidationError(t *testing.T) {
	cfg := validConfig()
	cfg.Services[1].DependsOn = []string{"does-not-exist"}
	assert.NoError(t, cfg.Validate())
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())
	assert.False(t, errs.HasErrors())

	errs.Add("a", "is wrong")
	assert.Equal(t, "field 'a': is wrong", errs.Error())

	errs.Add("b", "is also wrong", 3)
	assert.Equal(t, "validation failed: field 'a': is wrong; field 'b': is also wrong", errs.Error())
	assert.Equal(t, 3, errs[1].Value)
}

func TestHealthCheckKind(t *testing.T) {
	assert.Equal(t, HealthCheckNone, HealthCheckSpec{}.Kind())
	assert.Equal(t, HealthCheckHTTP, HealthCheckSpec{URL: "http://x"}.Kind())
	assert.Equal(t, HealthCheckCommand, HealthCheckSpec{Command: []string{"true"}}.Kind())
	assert.Equal(t, HealthCheckPostgres, HealthCheckSpec{Postgres: "postgres://x"}.Kind())
}
