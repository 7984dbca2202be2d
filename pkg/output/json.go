package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/logpull/pkg/query"
)

// JSONFormatter formats records as JSON, one document per record. Without
// Pretty the output is newline-delimited JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the record as JSON.
func (f *JSONFormatter) Format(ctx context.Context, rec query.Record, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if f.opts.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(selectFields(rec, f.opts.Fields))
}
