package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mines_rooms_created_total",
			Help: "Rooms created",
		},
	)
	RoomsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mines_rooms_closed_total",
			Help: "Rooms closed, by reason",
		},
		[]string{"reason"},
	)
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mines_sessions_started_total",
			Help: "Game sessions started",
		},
		[]string{"kind"},
	)
	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mines_sessions_finished_total",
			Help: "Game sessions reaching a terminal state",
		},
		[]string{"state"},
	)
	PayoutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mines_payout_total",
			Help: "Sum of realized payouts",
		},
	)
	InvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mines_invariant_violations_total",
			Help: "Moves rejected because the session record is inconsistent",
		},
	)
)

func init() {
	prometheus.MustRegister(RoomsCreated)
	prometheus.MustRegister(RoomsClosed)
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionsFinished)
	prometheus.MustRegister(PayoutTotal)
	prometheus.MustRegister(InvariantViolations)
}
