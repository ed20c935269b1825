package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Delivery outcomes recorded on the ingestion counter.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus instruments for the ingestion pipeline.
type Metrics struct {
	deliveries    *prometheus.CounterVec
	platesCreated prometheus.Counter
	purged        prometheus.Counter
}

// NewRegistry builds the process-wide Prometheus registry with runtime
// collectors pre-registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plately_webhook_deliveries_total",
			Help: "Webhook deliveries by terminal outcome.",
		}, []string{"outcome"}),
		platesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plately_plates_created_total",
			Help: "Plate records created by the ingestion pipeline.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plately_deliveries_purged_total",
			Help: "Terminal delivery records removed by the retention purge.",
		}),
	}
	registry.MustRegister(m.deliveries, m.platesCreated, m.purged)
	return m
}

func (m *Metrics) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddPlatesCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.platesCreated.Add(float64(n))
}

func (m *Metrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}
