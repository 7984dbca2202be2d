package query

// State is the phase of one query invocation.
type State int

const (
	// StateSubmitting: the next fetch will issue a request, either the original
	// query or a continuation of it.
	StateSubmitting State = iota
	// StatePolling: the query was accepted and we wait for it to finish.
	StatePolling
	// StateDecoding: the last page is being turned into records, or its
	// records are still being handed out.
	StateDecoding
	// StateExhausted: every record was delivered and no further requests will
	// be made.
	StateExhausted
	// StateFailed: a fetch failed; the sequence is halted for good.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateDecoding:
		return "decoding"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Continuation is the cursor driving pagination.
type Continuation struct {
	// Target is the URL of the next request. Empty once the result set is
	// exhausted.
	Target string

	// IsContinuation is false only while the original query is being issued.
	// Once set, the query parameters (filter, time range, page size) are
	// never sent again.
	IsContinuation bool
}

// Done reports whether there is nothing left to fetch.
func (c Continuation) Done() bool {
	return c.Target == ""
}

// machine tracks the state of one invocation and reports every transition.
type machine struct {
	id       string
	state    State
	observer Observer
}

func (m *machine) transition(to State) {
	if m.state == to {
		return
	}
	from := m.state
	m.state = to
	m.observer.StateChanged(m.id, from, to)
}
