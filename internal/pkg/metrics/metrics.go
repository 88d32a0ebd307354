package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every motwatch collector and is served on /metrics.
var Registry = prometheus.NewRegistry()

// Label values shared by the collectors below.
const (
	ResultSettled = "settled"
	ResultAborted = "aborted"

	OutcomeSuccess   = "success"
	OutcomeNotFound  = "not_found"
	OutcomeAPIError  = "api_error"
	OutcomeAuthError = "auth_error"
)

var (
	// PollCyclesTotal counts finished poll cycles by result (settled/aborted).
	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motwatch_poll_cycles_total",
			Help: "Total number of poll cycles by result.",
		},
		[]string{"result"},
	)

	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "motwatch_poll_cycle_duration_seconds",
			Help:    "Wall time of one poll cycle.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// LookupsTotal counts vehicle lookups by outcome.
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motwatch_lookups_total",
			Help: "Total number of vehicle history lookups by outcome.",
		},
		[]string{"outcome"},
	)

	LookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "motwatch_lookup_duration_seconds",
			Help:    "Latency of vehicle history lookups.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TokenRefreshTotal counts round trips to the token endpoint by result.
	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motwatch_token_refresh_total",
			Help: "Total number of OAuth2 token refreshes by result.",
		},
		[]string{"result"},
	)

	TrackedVehicles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "motwatch_tracked_vehicles",
			Help: "Number of vehicles tracked in the latest cycle.",
		},
	)

	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "motwatch_last_success_timestamp_seconds",
			Help: "Unix time at which the last poll cycle settled.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PollCyclesTotal,
		PollCycleDuration,
		LookupsTotal,
		LookupDuration,
		TokenRefreshTotal,
		TrackedVehicles,
		LastSuccessTimestamp,
	)
}
