package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel(), "level %d", test.level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message %d", 42)

	output := buf.String()
	assert.Contains(t, output, "test message 42")
	assert.Contains(t, output, "subsystem=test-subsystem")
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.False(t, Enabled(LevelDebug))
	assert.True(t, Enabled(LevelError))
}

func TestErrorAttachesErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Supervisor", errors.New("boom"), "failed to launch %s", "backend")

	output := buf.String()
	assert.Contains(t, output, "failed to launch backend")
	assert.Contains(t, output, "error=boom")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	LogAttrs(LevelInfo, "Supervisor", nil, "state transition",
		slog.String("service", "backend"),
		slog.String("to", "Running"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "state transition", entry["msg"])
	assert.Equal(t, "Supervisor", entry["subsystem"])
	assert.Equal(t, "backend", entry["service"])
	assert.Equal(t, "Running", entry["to"])
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	w := LineWriter(LevelDebug, "service/backend")
	_, err := w.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	_, err = w.Write([]byte("line\r\n\npartial"))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "first line")
	assert.Contains(t, output, "second line")
	assert.NotContains(t, output, "partial")

	require.NoError(t, w.Close())
	assert.Contains(t, buf.String(), "partial")
	assert.Equal(t, 3, strings.Count(buf.String(), "subsystem=service/backend"))
}
