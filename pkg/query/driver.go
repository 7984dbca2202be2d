package query

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ccollicutt/logpull/pkg/transport"
)

// APIKeyHeader carries the credentials on every request.
const APIKeyHeader = "x-api-key"

// Driver runs the request/poll cycle of one query invocation and hands
// terminal pages to the decoder.
type Driver struct {
	doer         transport.Doer
	header       http.Header
	params       url.Values
	timeout      time.Duration
	pollInterval time.Duration
	decode       DecodeOptions
	observer     Observer
	m            *machine
}

// FetchPage fetches the page cont points at and decodes it. The returned next
// reference is empty when the page is the last one.
//
// The original query parameters are only sent while cont.IsContinuation is
// false. An accepted query (202) is polled every pollInterval until the
// service stops reporting progress.
func (d *Driver) FetchPage(ctx context.Context, cont Continuation) ([]Record, string, error) {
	d.m.transition(StateSubmitting)

	req := d.newRequest(cont.Target)
	kind := RequestContinue
	if !cont.IsContinuation {
		req.Query = d.params
		kind = RequestSubmit
	}

	resp, page, err := d.roundTrip(ctx, req, kind)
	if err != nil {
		return nil, "", err
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		link, ok := page.FirstLink()
		if !ok || link.Href == "" {
			return nil, "", &ProtocolError{
				URL:        req.URL,
				StatusCode: resp.StatusCode,
				Reason:     ErrNoPollEndpoint.Error(),
				Err:        ErrNoPollEndpoint,
			}
		}
		resp, page, err = d.poll(ctx, link.Href)
		if err != nil {
			return nil, "", err
		}
	case http.StatusOK:
		// Answered synchronously; nothing to poll.
	default:
		return nil, "", &ProtocolError{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Reason:     "unexpected status for query request",
		}
	}

	next := ""
	if resp.StatusCode == http.StatusOK {
		next = page.NextHref()
	}

	d.m.transition(StateDecoding)
	records, err := Decode(page, d.decode)
	if err != nil {
		return nil, "", err
	}

	d.observer.PageDecoded(d.m.id, len(records), next)
	return records, next, nil
}

// poll requests href until the body no longer reports a running job. The
// first attempt goes out immediately; every later one waits pollInterval
// after the previous response arrived.
func (d *Driver) poll(ctx context.Context, href string) (*transport.Response, *Page, error) {
	d.m.transition(StatePolling)

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if err := d.pause(ctx); err != nil {
				return nil, nil, &TransportError{URL: href, Err: err}
			}
		}

		resp, page, err := d.roundTrip(ctx, d.newRequest(href), RequestPoll)
		if err != nil {
			return nil, nil, err
		}

		if page.InProgress() {
			d.observer.PollProgress(d.m.id, attempt, *page.Progress)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, nil, &ProtocolError{
				URL:        href,
				StatusCode: resp.StatusCode,
				Reason:     "unexpected status for poll request",
			}
		}
		return resp, page, nil
	}
}

// pause blocks for one poll interval counted from now.
func (d *Driver) pause(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(d.pollInterval), 1)
	limiter.Allow()

	err := limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// Wait gives up early when the deadline falls inside the interval.
	return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
}

func (d *Driver) roundTrip(ctx context.Context, req *transport.Request, kind RequestKind) (*transport.Response, *Page, error) {
	d.observer.RequestSent(d.m.id, kind, req.URL)

	resp, err := d.doer.Do(ctx, req)
	if err != nil {
		return nil, nil, &TransportError{URL: req.URL, Err: err}
	}

	// Error statuses rarely carry a JSON body worth reporting.
	if resp.StatusCode >= 400 {
		return nil, nil, &ProtocolError{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	page, err := ParsePage(resp.Body)
	if err != nil {
		return nil, nil, &ProtocolError{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Reason:     "malformed response body",
			Err:        err,
		}
	}
	return resp, page, nil
}

func (d *Driver) newRequest(target string) *transport.Request {
	return &transport.Request{
		URL:     target,
		Header:  d.header.Clone(),
		Timeout: d.timeout,
	}
}
