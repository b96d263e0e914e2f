package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat request outcomes
const (
	OutcomeOK          = "ok"
	OutcomeBlocked     = "blocked"
	OutcomeFallback    = "fallback"
	OutcomeRateLimited = "rate_limited"
)

var (
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoutchat_chat_requests_total",
			Help: "Total number of chat requests by outcome",
		},
		[]string{"outcome"},
	)

	providerTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoutchat_provider_tokens_total",
			Help: "Total number of tokens recorded against the ledger by direction",
		},
		[]string{"direction"},
	)

	estimatedCost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoutchat_estimated_cost_dollars_total",
			Help: "Total estimated provider spend in dollars",
		},
	)

	providerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoutchat_provider_duration_seconds",
			Help:    "Latency of provider completion calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)
)

// ChatRequest counts one finished chat request
func ChatRequest(outcome string) {
	chatRequests.WithLabelValues(outcome).Inc()
}

// Usage records tokens and spend for one answered request
func Usage(inputTokens, outputTokens int, cost float64) {
	providerTokens.WithLabelValues("input").Add(float64(inputTokens))
	providerTokens.WithLabelValues("output").Add(float64(outputTokens))
	estimatedCost.Add(cost)
}

// ProviderDuration observes one provider call
func ProviderDuration(d time.Duration) {
	providerDuration.Observe(d.Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
