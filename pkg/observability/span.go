package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	ErrTypeIO         = "io"
	ErrTypeValidation = "validation"
	ErrTypeInternal   = "internal"
)

// Error origin values for the error.source span attribute.
const (
	ErrSourceManifest = "manifest"
	ErrSourceSource   = "source"
	ErrSourceConfig   = "config"
	ErrSourceClient   = "client"
)

const (
	attrErrorType   = "error.type"
	attrErrorSource = "error.source"
)

// RecordSpanError marks span as failed and attaches the error classification.
// An empty source is omitted.
func RecordSpanError(span trace.Span, err error, errType, source string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []attribute.KeyValue{attribute.String(attrErrorType, errType)}
	if source != "" {
		attrs = append(attrs, attribute.String(attrErrorSource, source))
	}

	span.SetAttributes(attrs...)
}
