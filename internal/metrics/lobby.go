package metrics

import "github.com/prometheus/client_golang/prometheus"

// LobbyMetrics tracks the lobby server. A nil *LobbyMetrics records nothing.
type LobbyMetrics struct {
	Sessions  prometheus.Gauge
	Clients   prometheus.Gauge
	Requests  *prometheus.CounterVec
	Expired   prometheus.Counter
	JoinFails *prometheus.CounterVec
}

func NewLobbyMetrics(reg prometheus.Registerer) *LobbyMetrics {
	m := &LobbyMetrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "sessions",
			Help:      "Sessions currently advertised.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "requests_total",
			Help:      "Lobby protocol requests by type and result.",
		}, []string{"type", "result"}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "sessions_expired_total",
			Help:      "Sessions dropped after their host missed heartbeats.",
		}),
		JoinFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "join_failures_total",
			Help:      "Rejected joins by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Sessions, m.Clients, m.Requests, m.Expired, m.JoinFails)
	return m
}

func (m *LobbyMetrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

func (m *LobbyMetrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.Clients.Set(float64(n))
}

func (m *LobbyMetrics) Request(typ string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Requests.WithLabelValues(typ, result).Inc()
}

func (m *LobbyMetrics) SessionsExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Expired.Add(float64(n))
}

func (m *LobbyMetrics) JoinFailed(reason string) {
	if m == nil {
		return
	}
	m.JoinFails.WithLabelValues(reason).Inc()
}
