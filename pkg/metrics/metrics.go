package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bps", Name: "api_requests_total", Help: "Number of API requests by outcome (ok, client_error, server_error, network_error)."},
		[]string{"outcome"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bps", Name: "token_refreshes_total", Help: "Number of refresh-token exchanges by result."},
		[]string{"result"},
	)
	SessionPolls = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "bps", Name: "session_polls_total", Help: "Number of charging-session poll cycles executed."},
	)
	DeepLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bps", Name: "deep_links_total", Help: "Number of deep links handled by match result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests)
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(SessionPolls)
	reg.MustRegister(DeepLinks)
}
