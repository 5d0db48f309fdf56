package commands

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
)

func TestObservabilityConfig_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		global     GlobalOptions
		configured string
		want       slog.Level
	}{
		{"configured", GlobalOptions{}, "warn", slog.LevelWarn},
		{"default", GlobalOptions{}, "", slog.LevelInfo},
		{"verbose wins", GlobalOptions{Verbose: true}, "error", slog.LevelDebug},
		{"quiet wins", GlobalOptions{Quiet: true}, "debug", slog.LevelError},
		{"debug trace", GlobalOptions{DebugTrace: true, Quiet: true}, "", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.global.observabilityConfig(observability.ModeCLI, tt.configured, io.Discard)

			assert.Equal(t, tt.want, cfg.LogLevel)
			assert.Equal(t, tt.global.DebugTrace, cfg.DebugTrace)
			assert.Equal(t, observability.ModeCLI, cfg.Mode)
		})
	}
}
