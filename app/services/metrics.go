package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics exports reconciliation counters. A nil *SyncMetrics is a no-op.
type SyncMetrics struct {
	attempts      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	fieldChanges  *prometheus.CounterVec
	lastCheckIn   prometheus.Gauge
	triggersFired prometheus.Counter
}

// NewSyncMetrics registers the sync metrics with registerer. A nil registerer
// uses the default registry.
func NewSyncMetrics(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SyncMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itsf_agent_sync_attempts_total",
				Help: "Device sync attempts by outcome.",
			},
			[]string{"outcome"}, // inserted | updated | touched | failed
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "itsf_agent_sync_duration_seconds",
				Help:    "Wall time of a device sync attempt.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		fieldChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itsf_agent_field_changes_total",
				Help: "Compared fields found changed, by field.",
			},
			[]string{"field"},
		),
		lastCheckIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "itsf_agent_last_check_in_timestamp_seconds",
			Help: "Unix time of the last confirmed check-in, 0 when never checked in.",
		}),
		triggersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itsf_agent_forced_sync_triggers_total",
			Help: "Forced sync triggers consumed.",
		}),
	}

	registerer.MustRegister(m.attempts, m.duration, m.fieldChanges, m.lastCheckIn, m.triggersFired)
	return m
}

// ObserveResult records a finished reconciliation.
func (m *SyncMetrics) ObserveResult(res SyncResult) {
	if m == nil {
		return
	}
	outcome := string(res.Outcome)
	m.attempts.WithLabelValues(outcome).Inc()
	if !res.FinishedAt.IsZero() {
		m.duration.WithLabelValues(outcome).Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	}
	for _, c := range res.Changes {
		m.fieldChanges.WithLabelValues(c.Field).Inc()
	}
}

// SetLastCheckIn publishes the persisted check-in time; nil resets it.
func (m *SyncMetrics) SetLastCheckIn(t *time.Time) {
	if m == nil {
		return
	}
	if t == nil {
		m.lastCheckIn.Set(0)
		return
	}
	m.lastCheckIn.Set(float64(t.Unix()))
}

// TriggerConsumed counts a consumed forced-sync trigger.
func (m *SyncMetrics) TriggerConsumed() {
	if m == nil {
		return
	}
	m.triggersFired.Inc()
}
