package query

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TimestampField is the record key holding the event timestamp (epoch
// milliseconds as reported by the service).
const TimestampField = "timestamp"

// Record is one decoded unit of output: the event timestamp merged with the
// fields of its JSON message, or the statistics object of a statistics query.
// Records are never modified after they are handed to the consumer.
type Record map[string]any

// Decode copies the record into out, which must be a pointer to a struct or
// map. Struct fields are matched by their `json` tag and scalar values are
// converted where it makes sense ("42" -> 42).
func (r Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("creating record decoder: %w", err)
	}

	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

// Timestamp returns the event time of the record. The second value is false
// for records without a usable timestamp, such as statistics.
func (r Record) Timestamp() (time.Time, bool) {
	if _, ok := r[TimestampField]; !ok {
		return time.Time{}, false
	}

	var ts struct {
		Millis int64 `json:"timestamp"`
	}
	if err := r.Decode(&ts); err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ts.Millis), true
}
