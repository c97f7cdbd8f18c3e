package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adminhub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminhub_gate_decisions_total",
			Help: "Privileged gate decisions by outcome.",
		},
		[]string{"outcome"},
	)

	UserCreateRollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminhub_user_create_rollbacks_total",
			Help: "Compensating identity deletes after a failed user creation.",
		},
		[]string{"result"},
	)

	OrphanIdentitiesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adminhub_orphan_identities_removed_total",
		Help: "Identities without a profile removed by reconciliation.",
	})

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminhub_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"class"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
