package observability

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the span attribute key prefixes the span logger prints.
var allowedPrefixes = []string{
	"run.",
	"scope.",
	"error.",
	"mcp.",
}

// spanLogger is a SpanProcessor that logs every ended span at debug level
// with its allowed attributes.
type spanLogger struct {
	logger *slog.Logger
}

// NewSpanLogger returns a SpanProcessor that logs ended spans through logger.
func NewSpanLogger(logger *slog.Logger) sdktrace.SpanProcessor {
	return &spanLogger{logger: logger}
}

// OnStart is a no-op.
func (l *spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span.
func (l *spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	args := []any{
		"span", s.Name(),
		"duration", s.EndTime().Sub(s.StartTime()),
		attrTraceID, s.SpanContext().TraceID().String(),
	}

	if s.Status().Description != "" {
		args = append(args, "status", s.Status().Description)
	}

	for _, kv := range filterAttributes(s.Attributes()) {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}

	l.logger.Debug("span ended", args...)
}

// Shutdown is a no-op.
func (l *spanLogger) Shutdown(context.Context) error { return nil }

// ForceFlush is a no-op.
func (l *spanLogger) ForceFlush(context.Context) error { return nil }

func filterAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		if isAllowed(string(kv.Key)) {
			out = append(out, kv)
		}
	}

	return out
}

func isAllowed(key string) bool {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}
