// Package metrics provides the centralized Prometheus registry for the lay engine.
package metrics

import (
	"fmt"
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
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "scheduler_ticks_total",
		Help:      "Total number of scheduler ticks completed",
	})
	BetsPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "bets_placed_total",
		Help:      "Total number of bets recorded, by rule and mode",
	}, []string{"rule", "mode"})
	BetFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "bet_failures_total",
		Help:      "Total number of bet submissions rejected by the exchange",
	})
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "rule_evaluations_total",
		Help:      "Total number of rule evaluations, by outcome",
	}, []string{"outcome"})
	SpreadRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "spread_rejections_total",
		Help:      "Total number of instructions dropped by the spread gate",
	})
	JOFSSplitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "jofs_splits_total",
		Help:      "Total number of joint-favourite stake splits",
	})
	PersistenceFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "persistence_failures_total",
		Help:      "Total number of failed state writes",
	})
	SettlementSyncsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lay_engine",
		Name:      "settlement_syncs_total",
		Help:      "Total number of cleared-bets sync runs",
	})
)

// Gauge metrics
var (
	TrackedMarkets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lay_engine",
		Name:      "tracked_markets",
		Help:      "Number of tracked markets, by state",
	}, []string{"state"})
	AccountBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lay_engine",
		Name:      "account_balance",
		Help:      "Last known available-to-bet balance",
	})
	SessionLiability = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lay_engine",
		Name:      "session_liability",
		Help:      "Accumulated liability for the current session",
	})
)

// Histogram metrics
var (
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lay_engine",
		Name:      "tick_duration_seconds",
		Help:      "Duration of scheduler ticks in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BetPlacementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lay_engine",
		Name:      "bet_placement_latency_seconds",
		Help:      "Latency of bet placement calls in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(TicksTotal)
		registry.MustRegister(BetsPlacedTotal)
		registry.MustRegister(BetFailuresTotal)
		registry.MustRegister(EvaluationsTotal)
		registry.MustRegister(SpreadRejectionsTotal)
		registry.MustRegister(JOFSSplitsTotal)
		registry.MustRegister(PersistenceFailuresTotal)
		registry.MustRegister(SettlementSyncsTotal)

		registry.MustRegister(TrackedMarkets)
		registry.MustRegister(AccountBalance)
		registry.MustRegister(SessionLiability)

		registry.MustRegister(TickDuration)
		registry.MustRegister(BetPlacementLatency)
	})
	return registry
}

// Handler returns an HTTP handler serving the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(InitRegistry(), promhttp.HandlerOpts{})
}

// Serve starts a metrics HTTP server on the given port
func Serve(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
