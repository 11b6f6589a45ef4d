package main

import (
	"testing"

	"testrig/cmd"
)

func TestVersion(t *testing.T) {
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}
}

func TestVersionVariable(t *testing.T) {
	tests := []struct {
		name     string
		setValue string
		expected string
	}{
		{
			name:     "default version",
			setValue: "",
			expected: "dev",
		},
		{
			name:     "custom version",
			setValue: "v1.0.0",
			expected: "v1.0.0",
		},
		{
			name:     "semantic version",
			setValue: "2.3.4-beta.1",
			expected: "2.3.4-beta.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalVersion := version
			defer func() { version = originalVersion }()

			if tt.setValue != "" {
				version = tt.setValue
			}
			cmd.SetVersion(version)

			if got := cmd.GetVersion(); got != tt.expected {
				t.Errorf("Expected version %s, got %s", tt.expected, got)
			}
		})
	}
}
