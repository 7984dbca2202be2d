package query

import (
	"bytes"
	"fmt"

	"github.com/valyala/fastjson"
)

// Link relation used by the service to announce the next page of results.
const relNext = "Next"

// Link is one entry of the `links` array of a response.
type Link struct {
	Rel  string
	Href string
}

// Event is one raw entry of the `events` array of a page.
type Event struct {
	// Timestamp is the event time as sent by the service (usually epoch
	// milliseconds). Nil when the event carries none.
	Timestamp any

	// Message is the raw message text, expected to hold a JSON document.
	Message string

	// HasMessage is false when the message is absent, null or empty.
	HasMessage bool
}

// Page is the parsed body of one response of the query service.
type Page struct {
	Links []Link

	// Progress is set while the server-side job is still running.
	Progress *float64

	// Events is nil when the body has no `events` array.
	Events []Event

	// Statistics is nil when the body has no `statistics` object.
	Statistics Record
}

var pageParsers fastjson.ParserPool

// ParsePage parses a response body. An empty body yields an empty page.
func ParsePage(body []byte) (*Page, error) {
	page := &Page{}
	if len(bytes.TrimSpace(body)) == 0 {
		return page, nil
	}

	p := pageParsers.Get()
	defer pageParsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parsing response body: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("response body is a JSON %s, not an object", v.Type())
	}

	for _, lv := range v.GetArray("links") {
		page.Links = append(page.Links, Link{
			Rel:  string(lv.GetStringBytes("rel")),
			Href: string(lv.GetStringBytes("href")),
		})
	}

	if pv := v.Get("progress"); pv != nil && pv.Type() == fastjson.TypeNumber {
		progress := pv.GetFloat64()
		page.Progress = &progress
	}

	if ev := v.Get("events"); ev != nil && ev.Type() == fastjson.TypeArray {
		raw, _ := ev.Array()
		page.Events = make([]Event, 0, len(raw))
		for _, e := range raw {
			page.Events = append(page.Events, parseEvent(e))
		}
	}

	if sv := v.Get("statistics"); sv != nil && sv.Type() == fastjson.TypeObject {
		page.Statistics = Record(toObject(sv))
	}

	return page, nil
}

// InProgress reports whether the body announces a job that has not finished
// yet: a progress value is present and not above 100.
func (p *Page) InProgress() bool {
	return p.Progress != nil && *p.Progress <= 100
}

// FirstLink returns links[0], if any.
func (p *Page) FirstLink() (Link, bool) {
	if len(p.Links) == 0 {
		return Link{}, false
	}
	return p.Links[0], true
}

// NextHref returns the continuation reference of a terminal page, or "" when
// the page is the last one.
func (p *Page) NextHref() string {
	if l, ok := p.FirstLink(); ok && l.Rel == relNext {
		return l.Href
	}
	return ""
}

func parseEvent(v *fastjson.Value) Event {
	var ev Event
	if ts := v.Get("timestamp"); ts != nil && ts.Type() != fastjson.TypeNull {
		ev.Timestamp = toValue(ts)
	}

	mv := v.Get("message")
	if mv == nil {
		return ev
	}
	switch mv.Type() {
	case fastjson.TypeNull:
	case fastjson.TypeString:
		ev.Message = string(mv.GetStringBytes())
		ev.HasMessage = ev.Message != ""
	default:
		// Structured messages are kept as their JSON text.
		ev.Message = mv.String()
		ev.HasMessage = true
	}
	return ev
}

// toValue converts a fastjson value into plain Go values: map[string]any,
// []any, string, bool, nil, int64 for integral numbers and float64 otherwise.
func toValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		return toObject(v)
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, toValue(item))
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

func toObject(v *fastjson.Value) map[string]any {
	obj, _ := v.Object()
	out := make(map[string]any, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		out[string(key)] = toValue(val)
	})
	return out
}
