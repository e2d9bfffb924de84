package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes engine, fetch and cache activity as Prometheus metrics.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	excluded      *prometheus.CounterVec
	fetchTotal    *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
	breadth       prometheus.Gauge
	assetsCounted *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_runs_total",
				Help: "Total number of breadth runs by outcome",
			},
			[]string{"status"},
		),
		excluded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_excluded_assets_total",
				Help: "Assets excluded from a run, by reason",
			},
			[]string{"reason"},
		),
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_fetch_total",
				Help: "History fetches by result",
			},
			[]string{"result"},
		),
		fetchLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "breadth_fetch_duration_seconds",
				Help:    "Duration of a single asset history fetch",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breadth_cache_lookups_total",
				Help: "Series cache lookups by result",
			},
			[]string{"result"},
		),
		breadth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "breadth_current_percentage",
				Help: "Most recent percentage of assets above their moving average",
			},
		),
		assetsCounted: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breadth_assets",
				Help: "Asset counts of the last run",
			},
			[]string{"state"},
		),
	}
}

// ObserveFetch matches collector.Pool.OnFetch.
func (r *Recorder) ObserveFetch(_ string, took time.Duration, err error) {
	r.fetchLatency.Observe(took.Seconds())
	if err != nil {
		r.fetchTotal.WithLabelValues("error").Inc()
		return
	}
	r.fetchTotal.WithLabelValues("ok").Inc()
}

// ObserveCache matches collector.CachedFetcher.OnLookup.
func (r *Recorder) ObserveCache(hit bool) {
	if hit {
		r.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	r.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordRun records the outcome of one engine run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordExcluded counts one excluded asset.
func (r *Recorder) RecordExcluded(reason string) {
	r.excluded.WithLabelValues(reason).Inc()
}

// RecordAssets sets the included/excluded gauges.
func (r *Recorder) RecordAssets(included, excluded int) {
	r.assetsCounted.WithLabelValues("included").Set(float64(included))
	r.assetsCounted.WithLabelValues("excluded").Set(float64(excluded))
}

// RecordBreadth sets the current breadth gauge.
func (r *Recorder) RecordBreadth(pct float64) {
	r.breadth.Set(pct)
}
