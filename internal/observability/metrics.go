// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fusion metrics
	ObservationsLoaded prometheus.Counter
	SignalsFused       prometheus.Counter
	FusionKeysDropped  *prometheus.CounterVec

	// Panel metrics
	PanelRowsBuilt    prometheus.Counter
	SignalsNoReturn   prometheus.Counter
	StaleSignalsFound prometheus.Counter

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	RebalancesFormed  prometheus.Counter
	RebalancesSkipped prometheus.Counter
	MissingReturnDays prometheus.Counter
	BacktestDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sentiment_alpha_lab"
	}

	return &Metrics{
		// Fusion metrics
		ObservationsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fusion",
			Name:      "observations_loaded_total",
			Help:      "Total number of raw signal observations loaded",
		}),
		SignalsFused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fusion",
			Name:      "signals_fused_total",
			Help:      "Total number of entity-day signals fused",
		}),
		FusionKeysDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fusion",
			Name:      "keys_dropped_total",
			Help:      "Total number of entity-day keys dropped by reason",
		}, []string{"reason"}),

		// Panel metrics
		PanelRowsBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "rows_built_total",
			Help:      "Total number of signal-return panel rows built",
		}),
		SignalsNoReturn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "signals_no_return_total",
			Help:      "Total number of signals with no forward return available",
		}),
		StaleSignalsFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "stale_signals_total",
			Help:      "Total number of signals dropped for exceeding the return gap limit",
		}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by frequency and status",
		}, []string{"frequency", "status"}),
		RebalancesFormed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "rebalances_formed_total",
			Help:      "Total number of rebalance dates with a formed portfolio",
		}),
		RebalancesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "rebalances_skipped_total",
			Help:      "Total number of rebalance dates skipped for a thin universe",
		}),
		MissingReturnDays: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "missing_return_days_total",
			Help:      "Total number of held entity-days lacking a realized return",
		}),
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"frequency"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordObservationsLoaded adds to the observations loaded counter.
func RecordObservationsLoaded(n int) {
	DefaultMetrics.ObservationsLoaded.Add(float64(n))
}

// RecordSignalsFused adds to the signals fused counter.
func RecordSignalsFused(n int) {
	DefaultMetrics.SignalsFused.Add(float64(n))
}

// RecordFusionKeyDropped increments the dropped-key counter for a reason.
func RecordFusionKeyDropped(reason string) {
	DefaultMetrics.FusionKeysDropped.WithLabelValues(reason).Inc()
}

// RecordPanelBuilt records panel construction counts.
func RecordPanelBuilt(rows, noReturn, stale int) {
	DefaultMetrics.PanelRowsBuilt.Add(float64(rows))
	DefaultMetrics.SignalsNoReturn.Add(float64(noReturn))
	DefaultMetrics.StaleSignalsFound.Add(float64(stale))
}

// RecordBacktestRun records one backtest run outcome.
func RecordBacktestRun(frequency, status string, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(frequency, status).Inc()
	DefaultMetrics.BacktestDuration.WithLabelValues(frequency).Observe(durationSeconds)
}

// RecordRebalances records formed and skipped rebalance counts.
func RecordRebalances(formed, skipped int) {
	DefaultMetrics.RebalancesFormed.Add(float64(formed))
	DefaultMetrics.RebalancesSkipped.Add(float64(skipped))
}

// RecordMissingReturns adds to the missing-return counter.
func RecordMissingReturns(n int) {
	DefaultMetrics.MissingReturnDays.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkSuccessfulRun sets the last successful run timestamp to now.
func MarkSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
