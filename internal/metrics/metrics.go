// Package metrics exposes Prometheus instrumentation for the game server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spyfall_connections_active",
		Help: "Currently open WebSocket connections.",
	})

	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyfall_games_started_total",
		Help: "Rounds that passed formation checks and started.",
	})

	VotesCast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyfall_votes_cast_total",
		Help: "Accepted vote submissions, including overwrites.",
	})

	OutboundDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyfall_outbound_dropped_total",
		Help: "Outbound frames dropped because a client outbox was full.",
	})
)
