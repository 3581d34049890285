package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crop_advisor"

// Metrics holds the Prometheus counters, histograms, and gauges for the advisor API.
type Metrics struct {
	// Suitability scoring.
	ProbabilityRequests *prometheus.CounterVec // labels: outcome={ok,invalid_crop,invalid_soil}
	ProbabilityScores   prometheus.Histogram

	// Mentor advice.
	AdviceRequests    *prometheus.CounterVec // labels: source={remote,cache,unconfigured,failed}
	AdviceCache       *prometheus.CounterVec // labels: result={hit,miss,expired}
	AdviceAPIDuration prometheus.Histogram

	// Price simulation.
	PricesQuoted prometheus.Counter

	// Event stream.
	EventsPublished   prometheus.Counter
	EventsDropped     prometheus.Counter
	EventLoadErrors   prometheus.Counter
	EventBatchSize    prometheus.Histogram
	DispatcherRunning prometheus.Gauge
}

// NewMetrics creates and registers all advisor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProbabilityRequests,
		m.ProbabilityScores,
		m.AdviceRequests,
		m.AdviceCache,
		m.AdviceAPIDuration,
		m.PricesQuoted,
		m.EventsPublished,
		m.EventsDropped,
		m.EventLoadErrors,
		m.EventBatchSize,
		m.DispatcherRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProbabilityRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probability_requests_total",
			Help:      "Suitability probability requests by outcome.",
		}, []string{"outcome"}),
		ProbabilityScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probability_score",
			Help:      "Distribution of returned suitability probabilities.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		AdviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_requests_total",
			Help:      "Mentor answers by source.",
		}, []string{"source"}),
		AdviceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_cache_total",
			Help:      "Advice cache lookups by result.",
		}, []string{"result"}),
		AdviceAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advice_api_duration_seconds",
			Help:      "Gemini generateContent request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		PricesQuoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prices_quoted_total",
			Help:      "Total crop prices simulated.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total events written to the event topic.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded because the dispatch buffer was full or shutdown flush failed.",
		}),
		EventLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_load_errors_total",
			Help:      "Failed attempts to write an event batch.",
		}),
		EventBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_batch_size",
			Help:      "Number of events per written batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		DispatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_dispatcher_running",
			Help:      "1 when the event dispatcher is active, 0 when shut down.",
		}),
	}
}
