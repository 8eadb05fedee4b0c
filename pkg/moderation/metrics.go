package moderation

import "github.com/prometheus/client_golang/prometheus"

// Side-effect kinds counted when a best-effort write fails.
const (
	SideEffectModerationLog  = "moderation_log"
	SideEffectPublicationLog = "publication_log"
	SideEffectEventSink      = "event_sink"
	SideEffectSnapshot       = "snapshot"
	SideEffectMarkPublished  = "mark_published"
	SideEffectRollback       = "rollback"
)

// Metrics holds the Prometheus collectors of a Service.
type Metrics struct {
	ActionsTotal            *prometheus.CounterVec
	SideEffectFailuresTotal *prometheus.CounterVec
	BatchItems              *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_actions_total",
				Help: "Moderation actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		SideEffectFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_side_effect_failures_total",
				Help: "Best-effort writes that failed and were swallowed",
			},
			[]string{"kind"},
		),
		BatchItems: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moderation_batch_items",
				Help:    "Number of ids per batch action",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ActionsTotal, m.SideEffectFailuresTotal, m.BatchItems)
	}
	return m
}

func (m *Metrics) action(action Action, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ActionsTotal.WithLabelValues(string(action), outcome).Inc()
}

func (m *Metrics) sideEffectFailed(kind string) {
	m.SideEffectFailuresTotal.WithLabelValues(kind).Inc()
}
