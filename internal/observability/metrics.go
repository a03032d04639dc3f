package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KVErrors counts persistence-layer errors by backend and operation.
	KVErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_kv_errors_total",
		Help: "Total number of key-value backend errors by backend and operation",
	}, []string{"backend", "operation"})

	// StoreOps counts successful state-store operations.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_store_operations_total",
		Help: "Total number of state-store operations by store and operation",
	}, []string{"store", "operation"})

	// StoreErrors counts failed state-store operations.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_store_errors_total",
		Help: "Total number of state-store errors by store and operation",
	}, []string{"store", "operation"})

	// CorruptRecords counts persisted records cleared by corruption self-heal.
	CorruptRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_corrupt_records_total",
		Help: "Total number of corrupt persisted records cleared by store",
	}, []string{"store"})

	// EventConnections is the gauge of active event-stream WebSocket connections.
	EventConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_event_connections",
		Help: "Number of active event-stream WebSocket connections",
	})

	// EventsPublished counts store-change events pushed to subscribers.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_events_published_total",
		Help: "Total number of store-change events pushed to subscribers",
	}, []string{"topic"})
)
