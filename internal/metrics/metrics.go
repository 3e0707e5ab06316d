// Package metrics exposes Prometheus counters for the payment pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts received webhook deliveries by gateway event
	// name and outcome (processed, replay, rejected, error, ignored).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhook_events_total",
		Help: "Webhook deliveries received, by event and outcome.",
	}, []string{"event", "outcome"})

	// Initiations counts payment initiations by transaction type and result.
	Initiations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiations_total",
		Help: "Payment initiations, by transaction type and result.",
	}, []string{"type", "result"})

	// Reconciliations counts reconciliation outcomes by transaction type.
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciliations_total",
		Help: "Reconciliation runs, by transaction type and result.",
	}, []string{"type", "result"})
)
