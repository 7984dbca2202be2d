package query

import (
	"github.com/valyala/fastjson"
)

// InvalidJSONHandler turns a message that failed to parse into a record. A nil
// return drops the event.
type InvalidJSONHandler func(raw string) Record

// DecodeOptions is the error policy applied to malformed event messages.
type DecodeOptions struct {
	// IgnoreInvalidJSON silently drops events whose message is not JSON.
	IgnoreInvalidJSON bool

	// OnInvalidJSON is consulted when IgnoreInvalidJSON is false.
	OnInvalidJSON InvalidJSONHandler
}

var messageParsers fastjson.ParserPool

// Decode maps one page into records.
//
// A page with events yields one record per event that carries a message; a
// page with statistics only yields the statistics object as its single
// record; any other page yields no records. A message that is not JSON is
// dropped, replaced by OnInvalidJSON, or aborts the whole page with a
// DecodeError, in that order of preference.
func Decode(page *Page, opts DecodeOptions) ([]Record, error) {
	if page == nil {
		return []Record{}, nil
	}

	if page.Events != nil {
		return decodeEvents(page.Events, opts)
	}

	if page.Statistics != nil {
		return []Record{page.Statistics}, nil
	}

	return []Record{}, nil
}

func decodeEvents(events []Event, opts DecodeOptions) ([]Record, error) {
	p := messageParsers.Get()
	defer messageParsers.Put(p)

	records := make([]Record, 0, len(events))
	for _, ev := range events {
		if !ev.HasMessage {
			continue
		}

		v, err := p.Parse(ev.Message)
		if err != nil {
			if opts.IgnoreInvalidJSON {
				continue
			}
			if opts.OnInvalidJSON != nil {
				if rec := opts.OnInvalidJSON(ev.Message); rec != nil {
					records = append(records, rec)
				}
				continue
			}
			return nil, &DecodeError{Message: ev.Message, Err: err}
		}

		records = append(records, mergeEvent(ev.Timestamp, v))
	}
	return records, nil
}

// mergeEvent builds the record for a parsed message. The timestamp goes in
// first so a "timestamp" field of the message takes precedence. Messages that
// are JSON but not an object are kept under the "message" key.
func mergeEvent(ts any, v *fastjson.Value) Record {
	rec := Record{}
	if ts != nil {
		rec[TimestampField] = ts
	}

	if v.Type() != fastjson.TypeObject {
		rec["message"] = toValue(v)
		return rec
	}

	for k, val := range toObject(v) {
		rec[k] = val
	}
	return rec
}
