package formatting

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{
			name:     "short",
			input:    "connection refused",
			n:        60,
			expected: "connection refused",
		},
		{
			name:     "exact",
			input:    "abcdef",
			n:        6,
			expected: "abcdef",
		},
		{
			name:     "long",
			input:    "dial tcp 127.0.0.1:8000: connect: connection refused",
			n:        20,
			expected: "dial tcp 127.0.0....",
		},
		{
			name:     "newlines flattened",
			input:    "line one\nline two",
			n:        60,
			expected: "line one line two",
		},
		{
			name:     "multibyte",
			input:    "ééééé",
			n:        4,
			expected: "é...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.n)
			if result != tt.expected {
				t.Errorf("truncate() = %q, want %q", result, tt.expected)
			}
		})
	}
}
