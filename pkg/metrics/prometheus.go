package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	sourceResults   *prometheus.CounterVec
	candidatesTotal *prometheus.CounterVec
	alertsTotal     *prometheus.CounterVec
	suppressedTotal *prometheus.CounterVec
	noDataTotal     prometheus.Counter
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archantum_ticks_total",
				Help: "Total analysis ticks executed",
			},
			[]string{"tier"},
		),
		sourceResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archantum_source_results_total",
				Help: "Price source fetch results",
			},
			[]string{"source", "result"},
		),
		candidatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archantum_candidates_total",
				Help: "Opportunity candidates produced per analyzer",
			},
			[]string{"analyzer"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archantum_alerts_total",
				Help: "Alerts emitted past the dedup gate",
			},
			[]string{"kind", "tier"},
		),
		suppressedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archantum_alerts_suppressed_total",
				Help: "Candidates suppressed by the dedup gate",
			},
			[]string{"kind"},
		),
		noDataTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "archantum_no_data_total",
				Help: "Markets skipped because no source could price them",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "archantum_last_price",
				Help: "Last reconciled yes price per market",
			},
			[]string{"market"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archantum_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one scheduler tick for the given tier.
func (r *Recorder) RecordTick(tier int) {
	r.ticksTotal.WithLabelValues(strconv.Itoa(tier)).Inc()
}

// RecordSourceResult records a source fetch outcome.
func (r *Recorder) RecordSourceResult(source string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.sourceResults.WithLabelValues(source, result).Inc()
}

// RecordCandidates records how many candidates an analyzer produced.
func (r *Recorder) RecordCandidates(analyzer string, n int) {
	r.candidatesTotal.WithLabelValues(analyzer).Add(float64(n))
}

// RecordAlert records an emitted alert.
func (r *Recorder) RecordAlert(kind, tier string) {
	r.alertsTotal.WithLabelValues(kind, tier).Inc()
}

// RecordSuppressed records a gate suppression.
func (r *Recorder) RecordSuppressed(kind string) {
	r.suppressedTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLastPrice records the reconciled yes price for a market.
func (r *Recorder) RecordLastPrice(marketID string, price float64) {
	r.lastPrice.WithLabelValues(marketID).Set(price)
}

// RecordNoData records markets dropped for lack of any usable reading.
func (r *Recorder) RecordNoData(n int) {
	r.noDataTotal.Add(float64(n))
}
