// Package output provides formatting for retrieved log records.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary provides aggregate statistics about a query run.
type Summary struct {
	// Records is the number of records written.
	Records int

	// Pages is the number of result pages fetched.
	Pages int

	// From and To are the queried time range.
	From time.Time
	To   time.Time

	// Duration is how long the run took.
	Duration time.Duration
}

// WriteSummary prints a one-line, human-readable summary.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "logpull: %s %s from %s %s in %s\n",
		humanize.Comma(int64(s.Records)),
		plural(s.Records, "record", "records"),
		humanize.Comma(int64(s.Pages)),
		plural(s.Pages, "page", "pages"),
		s.Duration.Round(time.Millisecond))
	if err != nil {
		return err
	}

	if !s.From.IsZero() {
		_, err = fmt.Fprintf(w, "logpull: range %s to %s (%s)\n",
			s.From.UTC().Format(time.RFC3339),
			s.To.UTC().Format(time.RFC3339),
			s.To.Sub(s.From).Round(time.Second))
	}
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
