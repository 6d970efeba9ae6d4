// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRooms tracks rooms currently held in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cockroach_active_rooms",
		Help: "Number of rooms currently held in the session registry.",
	})

	// ConnectedClients tracks authenticated WebSocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cockroach_connected_clients",
		Help: "Number of authenticated WebSocket connections.",
	})

	// Intents counts intents by result (accepted, rejected, busy, dropped).
	Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cockroach_intents_total",
		Help: "Room intents processed, labelled by result.",
	}, []string{"result"})

	// Broadcasts counts outbound fan-out events.
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cockroach_broadcasts_total",
		Help: "Outbound events fanned out to room participants.",
	})

	// AuditFailures counts record sink append failures (swallowed).
	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cockroach_audit_failures_total",
		Help: "Record sink appends that failed and were dropped.",
	})
)
