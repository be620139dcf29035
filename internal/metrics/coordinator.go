package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcomes recorded for session requests.
const (
	OutcomeIssued     = "issued"
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
	OutcomeUnresolved = "unresolved"
)

// CoordinatorMetrics counts session requests made by a game client.
// A nil *CoordinatorMetrics records nothing.
type CoordinatorMetrics struct {
	Requests *prometheus.CounterVec
	Travels  *prometheus.CounterVec
}

func NewCoordinatorMetrics(reg prometheus.Registerer) *CoordinatorMetrics {
	m := &CoordinatorMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Session requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		Travels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "travels_total",
			Help:      "Travel calls by kind (server, client) and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(m.Requests, m.Travels)
	return m
}

func (m *CoordinatorMetrics) Request(op, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
}

func (m *CoordinatorMetrics) Travel(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Travels.WithLabelValues(kind, result).Inc()
}
