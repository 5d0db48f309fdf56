// Package commands implements CLI command handlers for depcheck.
package commands

import (
	"errors"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/version"
)

var (
	// ErrViolations is returned when a check finds non-exempted violations.
	ErrViolations = errors.New("dependency violations found")
	// ErrInvalidReport is returned when a stored report fails schema validation.
	ErrInvalidReport = errors.New("report does not match the schema")
)

// GlobalOptions holds the root command's persistent flags.
type GlobalOptions struct {
	Verbose    bool
	Quiet      bool
	LogJSON    bool
	DebugTrace bool
}

// observabilityConfig builds the observability settings for one command.
// Flags take precedence over the configured level.
func (g *GlobalOptions) observabilityConfig(mode observability.AppMode, configuredLevel string, logs io.Writer) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = mode
	cfg.LogWriter = logs
	cfg.LogJSON = g.LogJSON
	cfg.DebugTrace = g.DebugTrace
	cfg.LogLevel = observability.ParseLevel(configuredLevel)

	switch {
	case g.DebugTrace, g.Verbose:
		cfg.LogLevel = slog.LevelDebug
	case g.Quiet:
		cfg.LogLevel = slog.LevelError
	}

	return cfg
}
