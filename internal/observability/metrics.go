package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction and resolution paths.
type Metrics struct {
	PredictionsServed *prometheus.CounterVec // labels: city
	PredictionErrors  *prometheus.CounterVec // labels: city, reason={forecast,observation,ledger}

	ResolutionRuns  prometheus.Counter
	RecordsResolved prometheus.Counter
	LedgerRecords   prometheus.Gauge

	NWSRequests        *prometheus.CounterVec   // labels: endpoint={forecast,latest,readings}, outcome={success,error}
	NWSRequestDuration *prometheus.HistogramVec // labels: endpoint

	OutcomesPublished prometheus.Counter
}

// NewMetrics creates and registers all oracle metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PredictionsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "predictions_served_total",
			Help:      "Calibrated predictions served, by city.",
		}, []string{"city"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "prediction_errors_total",
			Help:      "Errors on the prediction path, by city and reason. Observation and ledger errors degrade the response rather than failing it.",
		}, []string{"city", "reason"}),
		ResolutionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "resolution_runs_total",
			Help:      "Resolution passes over the prediction ledger.",
		}),
		RecordsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "records_resolved_total",
			Help:      "Ledger records resolved against a realized daily high.",
		}),
		LedgerRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_oracle",
			Name:      "ledger_records",
			Help:      "Records currently held in the prediction ledger.",
		}),
		NWSRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "nws_requests_total",
			Help:      "NWS API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		NWSRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_oracle",
			Name:      "nws_request_duration_seconds",
			Help:      "NWS API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		OutcomesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_oracle",
			Name:      "outcomes_published_total",
			Help:      "Resolved prediction records published to the outcomes topic.",
		}),
	}

	prometheus.MustRegister(
		m.PredictionsServed,
		m.PredictionErrors,
		m.ResolutionRuns,
		m.RecordsResolved,
		m.LedgerRecords,
		m.NWSRequests,
		m.NWSRequestDuration,
		m.OutcomesPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PredictionsServed:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "predictions_served_total"}, []string{"city"}),
		PredictionErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "prediction_errors_total"}, []string{"city", "reason"}),
		ResolutionRuns:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "resolution_runs_total"}),
		RecordsResolved:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "records_resolved_total"}),
		LedgerRecords:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_oracle", Name: "ledger_records"}),
		NWSRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "nws_requests_total"}, []string{"endpoint", "outcome"}),
		NWSRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "weather_oracle", Name: "nws_request_duration_seconds"}, []string{"endpoint"}),
		OutcomesPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_oracle", Name: "outcomes_published_total"}),
	}
}
