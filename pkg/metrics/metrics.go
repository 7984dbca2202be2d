// Package metrics exposes the progress of queries as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ccollicutt/logpull/pkg/query"
)

// Observer is a query.Observer recording requests, pages, records and
// failures in its own registry.
type Observer struct {
	registry *prometheus.Registry

	// Requests counts HTTP requests by protocol step (submit, continue, poll).
	Requests *prometheus.CounterVec
	// Pages counts decoded pages.
	Pages prometheus.Counter
	// Records counts decoded records.
	Records prometheus.Counter
	// PageRecords is the distribution of records per page.
	PageRecords prometheus.Histogram
	// Failures counts failed queries by error class.
	Failures *prometheus.CounterVec
}

var _ query.Observer = (*Observer)(nil)

// New creates an Observer with a fresh registry.
func New() *Observer {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Observer{
		registry: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logpull_requests_total",
				Help: "Total number of requests sent to the query service",
			},
			[]string{"kind"},
		),
		Pages: factory.NewCounter(prometheus.CounterOpts{
			Name: "logpull_pages_total",
			Help: "Total number of result pages decoded",
		}),
		Records: factory.NewCounter(prometheus.CounterOpts{
			Name: "logpull_records_total",
			Help: "Total number of records decoded",
		}),
		PageRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "logpull_page_records",
			Help:    "Number of records per decoded page",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logpull_failures_total",
				Help: "Total number of failed queries",
			},
			[]string{"kind"},
		),
	}
}

// Registry returns the registry holding the metrics.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node_exporter textfile collector.
func (o *Observer) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func (o *Observer) StateChanged(string, query.State, query.State) {}

func (o *Observer) RequestSent(_ string, kind query.RequestKind, _ string) {
	o.Requests.WithLabelValues(string(kind)).Inc()
}

func (o *Observer) PollProgress(string, int, float64) {}

func (o *Observer) PageDecoded(_ string, records int, _ string) {
	o.Pages.Inc()
	o.Records.Add(float64(records))
	o.PageRecords.Observe(float64(records))
}

func (o *Observer) Failed(_ string, err error) {
	o.Failures.WithLabelValues(query.ErrorKind(err)).Inc()
}
