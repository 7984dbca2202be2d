package commands

import (
	"fmt"
	"strconv"
	"time"
)

// parseTime reads a point in time given as RFC3339, epoch milliseconds or a
// duration before now ("90m"). An empty string yields the zero time.
func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return time.Time{}, fmt.Errorf("invalid time %q: epoch milliseconds must not be negative", s)
		}
		return time.UnixMilli(ms), nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid time %q: duration must not be negative", s)
		}
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339, epoch milliseconds or a duration such as 2h)", s)
}
