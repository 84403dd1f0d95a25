// Package metrics exposes Prometheus collectors for a chartsync run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Page statuses.
const (
	PageOK     = "ok"
	PageFailed = "failed"
)

// Entry outcomes.
const (
	EntryAccepted = "accepted"
	EntryFailed   = "failed"
)

// Recorder owns a private registry so a batch run can push exactly its own
// series to a Pushgateway.
type Recorder struct {
	registry     *prometheus.Registry
	pagesTotal   *prometheus.CounterVec
	entriesTotal *prometheus.CounterVec
	pageBytes    prometheus.Counter
	runDuration  prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// New registers the run collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsync_pages_total",
				Help: "Sort pages processed, labeled by status.",
			},
			[]string{"status"},
		),
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsync_entries_total",
				Help: "Chart entries handed to the sink, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		pageBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartsync_page_bytes_total",
			Help: "Bytes of sort page HTML fetched.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsync_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsync_last_completion_timestamp_seconds",
			Help: "Unix time the last run completed.",
		}),
	}
	r.registry.MustRegister(r.pagesTotal, r.entriesTotal, r.pageBytes, r.runDuration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObservePage counts one page with the given status and size.
func (r *Recorder) ObservePage(status string, bytesFetched int) {
	r.pagesTotal.WithLabelValues(status).Inc()
	if bytesFetched > 0 {
		r.pageBytes.Add(float64(bytesFetched))
	}
}

// ObserveEntry counts one entry outcome.
func (r *Recorder) ObserveEntry(outcome string) {
	r.entriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records the run duration and completion time.
func (r *Recorder) ObserveRun(duration time.Duration, finished time.Time) {
	r.runDuration.Set(duration.Seconds())
	r.lastSuccess.Set(float64(finished.Unix()))
}

// Push sends all collectors to the Pushgateway at url under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
