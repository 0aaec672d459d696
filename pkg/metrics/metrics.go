// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesAppended tracks messages written to a conversation log.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Messages appended to conversation logs",
		},
		[]string{"room_kind", "type"},
	)

	// SendsBlocked tracks sends refused before reaching the store.
	SendsBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_blocked_total",
			Help: "Send attempts refused by the state machine or quota gate",
		},
		[]string{"reason"},
	)

	// MessagesExpired tracks ephemeral messages removed by the sweeper.
	MessagesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_expired_total",
			Help: "Ephemeral messages removed after their TTL",
		},
	)

	// SweepersActive tracks running expiry sweepers (one per open ephemeral view).
	SweepersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sweepers_active",
			Help: "Number of running expiry sweepers",
		},
	)

	// BookingNotices tracks booking notice injections by outcome.
	BookingNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_booking_notices_total",
			Help: "Booking notice injections",
		},
		[]string{"outcome"},
	)

	// RoomTransitions tracks conversation state transitions.
	RoomTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_room_transitions_total",
			Help: "Conversation state transitions",
		},
		[]string{"to"},
	)
)
