package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qoverflow"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	VotesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "votes_applied_total", Help: "Votes applied by target entity and operation."},
		[]string{"entity", "operation"},
	)
	VotesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "votes_rejected_total", Help: "Votes rejected by the state machine, by reason."},
		[]string{"reason"},
	)
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "mutations_total", Help: "Question document mutations by operation kind."},
		[]string{"kind"},
	)
	ViewsDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "views_deduplicated_total", Help: "Question views dropped as repeats within the dedupe window."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed, RateLimitRejected, VotesApplied, VotesRejected, Mutations, ViewsDeduplicated)
}
