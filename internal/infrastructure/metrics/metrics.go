package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_rpc_requests_total",
			Help: "Total RPC requests by procedure and status code",
		},
		[]string{"procedure", "code"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyquest_rpc_duration_seconds",
			Help:    "RPC handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_generation_runs_total",
			Help: "Content generation runs by outcome",
		},
		[]string{"outcome"},
	)

	CreditsCharged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyquest_credits_charged_total",
		Help: "Credits debited by generation runs",
	})

	CreditsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyquest_credits_granted_total",
		Help: "Credits granted by scheduled distribution",
	})

	ChallengeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_challenge_attempts_total",
			Help: "Judged challenge attempts by card type and result",
		},
		[]string{"card_type", "passed"},
	)

	SpeechEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyquest_speech_evaluations_total",
			Help: "Speech evaluations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	GuardContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyquest_generation_guard_contention_total",
		Help: "Generation requests rejected because the task was already being generated",
	})

	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyquest_event_subscribers",
		Help: "Open task event streams",
	})

	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyquest_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels a result as ok or error.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
