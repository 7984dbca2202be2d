package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logpull/pkg/query"
)

// TextFormatter formats records as human-readable lines:
//
//	2024-01-15T10:00:00.000Z level=error msg="disk full"
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the record as a single line. Records without a timestamp,
// such as statistics, start with "-".
func (f *TextFormatter) Format(ctx context.Context, rec query.Record, w io.Writer) error {
	var b strings.Builder

	if ts, ok := rec.Timestamp(); ok {
		b.WriteString(ts.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	} else {
		b.WriteString("-")
	}

	fields := selectFields(rec, f.opts.Fields)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == query.TimestampField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(fields[k]))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		if val == "" || strings.ContainsAny(val, " \t\n\"=") {
			return strconv.Quote(val)
		}
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
