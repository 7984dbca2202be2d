package commands

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
)

// LogOptions holds the persistent logging flags.
type LogOptions struct {
	Level string
	JSON  bool
}

// Validate checks the log level name.
func (o *LogOptions) Validate() error {
	if o.Level == "" {
		return nil
	}
	if hclog.LevelFromString(o.Level) == hclog.NoLevel {
		return fmt.Errorf("invalid log level %q (use trace, debug, info, warn or error)", o.Level)
	}
	return nil
}

// Logger creates the logger writing to w.
func (o *LogOptions) Logger(w io.Writer) hclog.Logger {
	level := hclog.Warn
	if o != nil && o.Level != "" {
		level = hclog.LevelFromString(o.Level)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "logpull",
		Level:      level,
		Output:     w,
		JSONFormat: o != nil && o.JSON,
	})
}
