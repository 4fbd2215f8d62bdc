package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/quadrant/internal/contracts"
)

// Recorder exports batch telemetry to Prometheus
// Implements batch.Recorder.
type Recorder struct {
	registry      *prometheus.Registry
	fetchDuration *prometheus.HistogramVec
	classified    *prometheus.CounterVec
	batchesTotal  prometheus.Counter
	lastBatchSize prometheus.Gauge
}

// NewRecorder registers all collectors on a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quadrant",
				Name:      "fetch_duration_seconds",
				Help:      "Data source fetch latency by source and outcome",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source", "outcome"},
		),
		classified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quadrant",
				Name:      "classifications_total",
				Help:      "Classification results by quadrant",
			},
			[]string{"quadrant"},
		),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quadrant",
			Name:      "batches_total",
			Help:      "Batches started",
		}),
		lastBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quadrant",
			Name:      "last_batch_size",
			Help:      "Number of symbols in the most recent batch",
		}),
	}

	r.registry.MustRegister(
		r.fetchDuration,
		r.classified,
		r.batchesTotal,
		r.lastBatchSize,
		collectors.NewGoCollector(),
	)
	return r
}

// ObserveFetch records one adapter call
func (r *Recorder) ObserveFetch(source, outcome string, d time.Duration) {
	r.fetchDuration.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// ObserveResult counts one classification
func (r *Recorder) ObserveResult(q contracts.Quadrant) {
	r.classified.WithLabelValues(string(q)).Inc()
}

// ObserveBatch records the start of a batch
func (r *Recorder) ObserveBatch(size int) {
	r.batchesTotal.Inc()
	r.lastBatchSize.Set(float64(size))
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
