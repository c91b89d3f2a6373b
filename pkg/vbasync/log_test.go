package vbasync_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := vbasync.NewLogger(&buf, zerolog.InfoLevel)

	logger.Info().Msg("test message")
	logger.Debug().Msg("hidden")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected log output to contain 'test message', got: %s", output)
	}
	if strings.Contains(output, "hidden") {
		t.Errorf("debug message logged at info level: %s", output)
	}
	if !strings.HasSuffix(strings.TrimSpace(output), "lib=vbasync") {
		t.Errorf("Expected log output to end with 'lib=vbasync', got: %s", output)
	}
}

func TestNewTestLogger(t *testing.T) {
	for verbose, want := range []zerolog.Level{zerolog.WarnLevel, zerolog.InfoLevel, zerolog.DebugLevel, zerolog.TraceLevel} {
		if got := vbasync.NewTestLogger(&bytes.Buffer{}, verbose).GetLevel(); got != want {
			t.Errorf("verbosity %d: got level %s, want %s", verbose, got, want)
		}
	}
}

func TestLogLevelFromString(t *testing.T) {
	testCases := []struct {
		levelStr string
		expected zerolog.Level
		wantErr  bool
	}{
		{"trace", zerolog.TraceLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"invalid", zerolog.NoLevel, true},
	}

	for _, tc := range testCases {
		t.Run(tc.levelStr, func(t *testing.T) {
			level, err := vbasync.LogLevelFromString(tc.levelStr)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for invalid level %q", tc.levelStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if level != tc.expected {
				t.Errorf("Expected level %v, got %v", tc.expected, level)
			}
		})
	}
}
