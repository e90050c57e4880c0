// Package metrics exposes Prometheus collectors for stock checks. A check is
// a short-lived batch job, so collected values are pushed to a Pushgateway
// at the end of the run instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job label used when none is configured.
const DefaultJob = "stockwatch"

// Recorder owns a private registry and the collectors registered with it.
type Recorder struct {
	registry      *prometheus.Registry
	checksTotal   *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	stockCount    prometheus.Gauge
	checkDuration prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_checks_total",
				Help: "Total number of stock checks, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_alerts_total",
				Help: "Total number of alert attempts, labeled by status.",
			},
			[]string{"status"},
		),
		stockCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_stock_count",
				Help: "Stock count parsed by the most recent check.",
			},
		),
		checkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockwatch_check_duration_seconds",
				Help:    "Histogram of end-to-end check durations.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60},
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_last_success_timestamp_seconds",
				Help: "Unix time of the last check that obtained a count.",
			},
		),
	}
	r.registry.MustRegister(r.checksTotal, r.alertsTotal, r.stockCount, r.checkDuration, r.lastSuccess)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCheck records the outcome label and duration of a check.
func (r *Recorder) ObserveCheck(outcome string, duration time.Duration) {
	r.checksTotal.WithLabelValues(outcome).Inc()
	r.checkDuration.Observe(duration.Seconds())
}

// ObserveCount records a successfully parsed count.
func (r *Recorder) ObserveCount(count int64, at time.Time) {
	r.stockCount.Set(float64(count))
	r.lastSuccess.Set(float64(at.Unix()))
}

// ObserveAlert records an alert attempt ("sent", "failed" or "skipped").
func (r *Recorder) ObserveAlert(status string) {
	r.alertsTotal.WithLabelValues(status).Inc()
}

// Push sends the registry to a Pushgateway, replacing the job's metric group.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(gatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
