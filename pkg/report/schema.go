package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var schemaJSON []byte

// ErrInvalidJSON is returned when a report is not well-formed JSON.
var ErrInvalidJSON = errors.New("report is not valid JSON")

// Schema returns the JSON Schema every JSON report conforms to.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// ValidationError is one schema violation of a stored report.
type ValidationError struct {
	Field       string
	Description string
}

// String implements fmt.Stringer.
func (e ValidationError) String() string {
	return e.Field + ": " + e.Description
}

// Validate checks a JSON report read from r against Schema. It returns the
// schema violations found; an error means the report could not be checked.
func Validate(r io.Reader) ([]ValidationError, error) {
	var doc any

	dec := json.NewDecoder(r)
	dec.UseNumber()

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	out := make([]ValidationError, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		out = append(out, ValidationError{Field: verr.Field(), Description: verr.Description()})
	}

	return out, nil
}
