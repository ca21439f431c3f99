package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Refresh token exchanges by result.",
	}, []string{"result"})

	tokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Signed tokens by kind.",
	}, []string{"kind"})

	gateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_gate_rejections_total",
		Help: "Requests turned away by the access token gate.",
	}, []string{"reason"})
)
