// Package metrics provides the centralized Prometheus metrics registry
// for the race-day engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SimulationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "simulations_total",
		Help:      "Total number of race simulations completed",
	})
	SimulationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "simulation_failures_total",
		Help:      "Total number of races skipped due to invalid inputs",
	})
	OrdersEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "orders_emitted_total",
		Help:      "Total number of orders emitted by the optimizer",
	})
	QuotesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "quotes_skipped_total",
		Help:      "Total number of combinations skipped for missing market quotes",
	})
	PredictionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "prediction_requests_total",
		Help:      "Total number of inference service requests by result",
	}, []string{"result"})
	OddsFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "odds_fetches_total",
		Help:      "Total number of odds snapshot fetches by result",
	}, []string{"result"})
	OddsStreamReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "odds_stream_reconnects_total",
		Help:      "Total number of odds stream reconnections",
	})
)

// Gauge metrics
var (
	TotalExposure = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "total_exposure",
		Help:      "Total stake committed across open orders in currency units",
	})
	DailyBudgetRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "daily_budget_remaining",
		Help:      "Unallocated portion of the daily wagering budget",
	})
	RacesScheduled = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "races_scheduled",
		Help:      "Number of races on today's card awaiting their near-post pass",
	})
)

// Histogram metrics
var (
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_engine",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of one race simulate/aggregate/optimize pass in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PredictionRequestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_engine",
		Name:      "prediction_request_latency_seconds",
		Help:      "Latency of inference service requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	OddsFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_engine",
		Name:      "odds_fetch_latency_seconds",
		Help:      "Latency of odds snapshot fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_engine",
		Name:      "batch_duration_seconds",
		Help:      "Duration of multi-race batch runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(SimulationsTotal)
		registry.MustRegister(SimulationFailuresTotal)
		registry.MustRegister(OrdersEmittedTotal)
		registry.MustRegister(QuotesSkippedTotal)
		registry.MustRegister(PredictionRequestsTotal)
		registry.MustRegister(OddsFetchesTotal)
		registry.MustRegister(OddsStreamReconnectsTotal)

		// Register gauge metrics
		registry.MustRegister(TotalExposure)
		registry.MustRegister(DailyBudgetRemaining)
		registry.MustRegister(RacesScheduled)

		// Register histogram metrics
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(PredictionRequestLatency)
		registry.MustRegister(OddsFetchLatency)
		registry.MustRegister(BatchDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSimulation records a completed race pass.
func RecordSimulation(durationSeconds float64) {
	SimulationsTotal.Inc()
	SimulationDuration.Observe(durationSeconds)
}

// RecordSimulationFailure records a race skipped for invalid inputs.
func RecordSimulationFailure() {
	SimulationFailuresTotal.Inc()
}

// RecordOrdersEmitted records orders produced by the optimizer.
func RecordOrdersEmitted(count int) {
	OrdersEmittedTotal.Add(float64(count))
}

// RecordQuoteSkipped records a combination dropped for a missing quote.
func RecordQuoteSkipped() {
	QuotesSkippedTotal.Inc()
}

// RecordPredictionRequest records an inference request outcome.
func RecordPredictionRequest(result string, durationSeconds float64) {
	PredictionRequestsTotal.WithLabelValues(result).Inc()
	PredictionRequestLatency.Observe(durationSeconds)
}

// RecordOddsFetch records an odds snapshot fetch outcome.
func RecordOddsFetch(result string, durationSeconds float64) {
	OddsFetchesTotal.WithLabelValues(result).Inc()
	OddsFetchLatency.Observe(durationSeconds)
}

// RecordStreamReconnect records an odds stream reconnection.
func RecordStreamReconnect() {
	OddsStreamReconnectsTotal.Inc()
}

// UpdateExposure updates the total exposure gauge.
func UpdateExposure(amount float64) {
	TotalExposure.Set(amount)
}

// UpdateDailyBudgetRemaining updates the remaining budget gauge.
func UpdateDailyBudgetRemaining(amount float64) {
	DailyBudgetRemaining.Set(amount)
}

// UpdateRacesScheduled updates the scheduled races gauge.
func UpdateRacesScheduled(count int) {
	RacesScheduled.Set(float64(count))
}

// RecordBatchDuration records a multi-race batch run.
func RecordBatchDuration(durationSeconds float64) {
	BatchDuration.Observe(durationSeconds)
}
