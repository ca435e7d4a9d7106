// Package metrics содержит счётчики Prometheus для сверки подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

const namespace = "entitlement"

// Metrics хранит счётчики сервиса.
type Metrics struct {
	staleDetected prometheus.Counter
	writes        *prometheus.CounterVec
	bulkRecords   *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		staleDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_detected_total",
			Help:      "Number of evaluations that found an active record with a lapsed expiry.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Number of persisted subscription record writes by source.",
		}, []string{"source"}),
		bulkRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_records_total",
			Help:      "Per-record outcomes of bulk updates and sweeps.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.staleDetected, m.writes, m.bulkRecords)
	return m
}

// StaleDetected увеличивает счётчик найденных устаревших записей.
func (m *Metrics) StaleDetected() {
	m.staleDetected.Inc()
}

// Write учитывает сохранённую запись.
func (m *Metrics) Write(source string) {
	m.writes.WithLabelValues(source).Inc()
}

// BulkRecord учитывает исход обработки одной записи в пакете. Пустая категория означает успех.
func (m *Metrics) BulkRecord(kind models.ErrorKind) {
	outcome := string(kind)
	if outcome == "" {
		outcome = "ok"
	}
	m.bulkRecords.WithLabelValues(outcome).Inc()
}
