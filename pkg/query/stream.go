package query

import (
	"context"
	"io"
	"iter"
)

// Stream is the lazy, forward-only sequence of records of one invocation.
// Records are fetched a page at a time as the consumer pulls them. A Stream
// is not safe for concurrent use and cannot be restarted.
type Stream struct {
	driver *Driver
	m      *machine
	cont   Continuation
	buf    []Record
	err    error
}

// ID returns the invocation id used in logs and observer calls.
func (s *Stream) ID() string {
	return s.m.id
}

// State returns the current phase of the invocation.
func (s *Stream) State() State {
	return s.m.state
}

// Continuation returns the pagination cursor.
func (s *Stream) Continuation() Continuation {
	return s.cont
}

// Next returns the next record. It returns io.EOF when the result set is
// exhausted. After a failed fetch every call returns that same error.
func (s *Stream) Next(ctx context.Context) (Record, error) {
	if s.err != nil {
		return nil, s.err
	}

	if len(s.buf) > 0 {
		return s.pop(), nil
	}

	if s.cont.Done() {
		s.m.transition(StateExhausted)
		return nil, io.EOF
	}

	records, next, err := s.driver.FetchPage(ctx, s.cont)
	if err != nil {
		s.err = err
		s.cont.Target = ""
		s.m.transition(StateFailed)
		s.m.observer.Failed(s.m.id, err)
		return nil, err
	}

	// A page without records ends the sequence, even if it links to another
	// page.
	if len(records) == 0 {
		s.cont.Target = ""
		s.m.transition(StateExhausted)
		return nil, io.EOF
	}

	s.buf = records
	s.cont = Continuation{Target: next, IsContinuation: true}
	if !s.cont.Done() {
		s.m.transition(StateSubmitting)
	}
	return s.pop(), nil
}

// All returns an iterator over the remaining records. Iteration stops after
// the first error, which is yielded with a nil record.
func (s *Stream) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Close drops buffered records and stops further fetches. Later calls to
// Next return io.EOF, or the earlier fetch error if there was one.
func (s *Stream) Close() error {
	s.buf = nil
	s.cont.Target = ""
	if s.m.state != StateFailed {
		s.m.transition(StateExhausted)
	}
	return nil
}

func (s *Stream) pop() Record {
	rec := s.buf[0]
	s.buf[0] = nil
	s.buf = s.buf[1:]
	return rec
}
