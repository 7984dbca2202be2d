package output

import (
	"context"
	"io"

	"github.com/ccollicutt/logpull/pkg/query"
)

// Formatter renders records in a specific format, one record at a time.
type Formatter interface {
	// Format renders a single record to the given writer.
	Format(ctx context.Context, rec query.Record, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Fields restricts output to the named fields. Empty prints everything.
	// The timestamp is always printed by the text formatter.
	Fields []string

	// Pretty indents JSON output.
	Pretty bool
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, &UnknownFormatError{Name: name}
	}
}

// UnknownFormatError is returned by New for an unsupported format name.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return "unknown output format \"" + e.Name + "\" (use text or json)"
}

// selectFields returns rec restricted to fields, or rec itself when fields is
// empty.
func selectFields(rec query.Record, fields []string) query.Record {
	if len(fields) == 0 {
		return rec
	}
	out := make(query.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
