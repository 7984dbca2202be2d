package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ccollicutt/logpull/pkg/transport"
)

const testQueryURL = "https://logs.example.com/query/logs"

// step is one scripted reply of a fakeDoer.
type step struct {
	status int
	body   string
	err    error
	delay  time.Duration
}

// span is when a fakeDoer call started and returned.
type span struct {
	start, end time.Time
}

// fakeDoer replies to requests with a fixed script and records every request.
type fakeDoer struct {
	t     *testing.T
	mu    sync.Mutex
	steps []step
	calls []*transport.Request
	spans []span
}

func newFakeDoer(t *testing.T, steps ...step) *fakeDoer {
	return &fakeDoer{t: t, steps: steps}
}

func (f *fakeDoer) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if len(f.steps) == 0 {
		f.t.Errorf("unexpected request #%d to %s", len(f.calls), req.URL)
		return nil, errors.New("script exhausted")
	}

	s := f.steps[0]
	f.steps = f.steps[1:]

	start := time.Now()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	f.spans = append(f.spans, span{start: start, end: time.Now()})

	if s.err != nil {
		return nil, s.err
	}
	return &transport.Response{StatusCode: s.status, Body: []byte(s.body)}, nil
}

func (f *fakeDoer) requests() []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*transport.Request(nil), f.calls...)
}

func (f *fakeDoer) timings() []span {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]span(nil), f.spans...)
}

// recordingObserver keeps every call for inspection.
type recordingObserver struct {
	NopObserver
	states   []State
	kinds    []RequestKind
	progress []float64
	pages    []int
	failures []error
}

func (r *recordingObserver) StateChanged(_ string, _, to State) {
	r.states = append(r.states, to)
}

func (r *recordingObserver) RequestSent(_ string, kind RequestKind, _ string) {
	r.kinds = append(r.kinds, kind)
}

func (r *recordingObserver) PollProgress(_ string, _ int, progress float64) {
	r.progress = append(r.progress, progress)
}

func (r *recordingObserver) PageDecoded(_ string, records int, _ string) {
	r.pages = append(r.pages, records)
}

func (r *recordingObserver) Failed(_ string, err error) {
	r.failures = append(r.failures, err)
}

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, doer transport.Doer, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithQueryURL(testQueryURL),
		WithDoer(doer),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	c, err := NewClient("test-key", opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func testOptions() Options {
	return Options{
		LogID:        "log-1",
		From:         testNow.Add(-time.Hour),
		PollInterval: time.Millisecond,
	}
}

// accepted is the 202 reply pointing at a poll URL.
func accepted(href string) step {
	return step{status: 202, body: `{"links":[{"rel":"Self","href":"` + href + `"}]}`}
}
