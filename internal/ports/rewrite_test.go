package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		declared int
		assigned int
		want     string
	}{
		{
			name: "placeholder", raw: "http://localhost:{{port}}/health",
			declared: 8005, assigned: 8006, want: "http://localhost:8006/health",
		},
		{
			name: "literal declared port", raw: "http://localhost:8005/health",
			declared: 8005, assigned: 8006, want: "http://localhost:8006/health",
		},
		{
			name: "literal at end", raw: "http://127.0.0.1:3000",
			declared: 3000, assigned: 3001, want: "http://127.0.0.1:3001",
		},
		{
			name: "longer port left alone", raw: "http://localhost:80050/health",
			declared: 8005, assigned: 8006, want: "http://localhost:80050/health",
		},
		{
			name: "unchanged port", raw: "http://localhost:8000/health",
			declared: 8000, assigned: 8000, want: "http://localhost:8000/health",
		},
		{
			name: "postgres dsn", raw: "postgres://app@localhost:5432/app?sslmode=disable",
			declared: 5432, assigned: 5433, want: "postgres://app@localhost:5433/app?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteURL(tt.raw, tt.declared, tt.assigned))
		})
	}
}

func TestSubstituteAll(t *testing.T) {
	args := []string{"uvicorn", "--port", "{{port}}", "--host=0.0.0.0:{{port}}"}
	got := SubstituteAll(args, 8001)

	assert.Equal(t, []string{"uvicorn", "--port", "8001", "--host=0.0.0.0:8001"}, got)
	assert.Equal(t, "{{port}}", args[2], "input must not be modified")
	assert.Nil(t, SubstituteAll(nil, 1))
}

func TestRewriteEnv(t *testing.T) {
	env := []string{"HOME=/root", "PORT=8000", "PATH=/bin", "PORT=9999"}

	got := RewriteEnv(env, "PORT", 8001)
	assert.Equal(t, []string{"HOME=/root", "PORT=8001", "PATH=/bin"}, got)

	got = RewriteEnv([]string{"HOME=/root"}, "LLM_PORT", 8006)
	assert.Equal(t, []string{"HOME=/root", "LLM_PORT=8006"}, got)

	// Keys sharing a prefix are distinct.
	got = SetEnv([]string{"PORTAL=x"}, "PORT", "1")
	assert.Equal(t, []string{"PORTAL=x", "PORT=1"}, got)
}
