package query

import (
	"github.com/hashicorp/go-hclog"
)

// RequestKind tells which step of the protocol a request belongs to.
type RequestKind string

const (
	RequestSubmit   RequestKind = "submit"
	RequestContinue RequestKind = "continue"
	RequestPoll     RequestKind = "poll"
)

// Observer receives the progress of a query invocation. Every call carries the
// invocation id so one observer can serve several queries. Calls are made from
// the goroutine pulling the stream and never concurrently for one invocation.
type Observer interface {
	StateChanged(id string, from, to State)
	RequestSent(id string, kind RequestKind, url string)
	PollProgress(id string, attempt int, progress float64)
	PageDecoded(id string, records int, next string)
	Failed(id string, err error)
}

// NopObserver ignores everything. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) StateChanged(string, State, State)       {}
func (NopObserver) RequestSent(string, RequestKind, string) {}
func (NopObserver) PollProgress(string, int, float64)       {}
func (NopObserver) PageDecoded(string, int, string)         {}
func (NopObserver) Failed(string, error)                    {}

// Observers fans every call out to each member in order.
type Observers []Observer

// JoinObservers combines the non-nil observers.
func JoinObservers(obs ...Observer) Observer {
	var out Observers
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return NopObserver{}
	case 1:
		return out[0]
	default:
		return out
	}
}

func (obs Observers) StateChanged(id string, from, to State) {
	for _, o := range obs {
		o.StateChanged(id, from, to)
	}
}

func (obs Observers) RequestSent(id string, kind RequestKind, url string) {
	for _, o := range obs {
		o.RequestSent(id, kind, url)
	}
}

func (obs Observers) PollProgress(id string, attempt int, progress float64) {
	for _, o := range obs {
		o.PollProgress(id, attempt, progress)
	}
}

func (obs Observers) PageDecoded(id string, records int, next string) {
	for _, o := range obs {
		o.PageDecoded(id, records, next)
	}
}

func (obs Observers) Failed(id string, err error) {
	for _, o := range obs {
		o.Failed(id, err)
	}
}

// LogObserver writes the progress of queries to an hclog logger.
type LogObserver struct {
	logger hclog.Logger
}

// NewLogObserver creates an observer logging through logger.
func NewLogObserver(logger hclog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) StateChanged(id string, from, to State) {
	l.logger.Trace("state changed", "query_id", id, "from", from.String(), "to", to.String())
}

func (l *LogObserver) RequestSent(id string, kind RequestKind, url string) {
	l.logger.Debug("making request", "query_id", id, "kind", string(kind), "url", url)
}

func (l *LogObserver) PollProgress(id string, attempt int, progress float64) {
	l.logger.Info("request progress", "query_id", id, "attempt", attempt, "progress", progress)
}

func (l *LogObserver) PageDecoded(id string, records int, next string) {
	l.logger.Debug("page decoded", "query_id", id, "records", records, "has_next", next != "")
}

func (l *LogObserver) Failed(id string, err error) {
	l.logger.Error("query failed", "query_id", id, "kind", ErrorKind(err), "error", err)
}
