package query

import (
	"errors"
	"fmt"
)

// ErrNoPollEndpoint is wrapped by the ProtocolError returned when the service
// accepts a query (202) without telling us where to poll for the result.
var ErrNoPollEndpoint = errors.New("did not receive poll endpoint")

// ConfigurationError reports a missing or invalid setting. It is always
// returned before any request is made.
type ConfigurationError struct {
	// Field is the name of the offending option (apiKey, logId, from, ...).
	Field string

	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %q %s", e.Field, e.Reason)
}

// TransportError wraps a failure of the HTTP transport. The cause is kept
// verbatim and is reachable through errors.Is / errors.As.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response that does not follow the query protocol:
// an accepted query without a poll link, an unexpected status code or a body
// that is not a JSON document.
type ProtocolError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol: %s (status %d, url %s)", e.Reason, e.StatusCode, e.URL)
	if e.Err != nil && !errors.Is(e.Err, ErrNoPollEndpoint) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeError reports an event message that is not valid JSON while no
// fallback (IgnoreInvalidJSON / OnInvalidJSON) is configured.
type DecodeError struct {
	// Message is the raw event message that failed to parse.
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding event message %q: %v", truncate(e.Message, 64), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrorKind names the class of err: configuration, transport, protocol, decode
// or other. Observers use it as a log field or metric label.
func ErrorKind(err error) string {
	var (
		cfgErr   *ConfigurationError
		transErr *TransportError
		protoErr *ProtocolError
		decErr   *DecodeError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &transErr):
		return "transport"
	case errors.As(err, &protoErr):
		return "protocol"
	case errors.As(err, &decErr):
		return "decode"
	default:
		return "other"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
