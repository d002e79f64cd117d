package websocket

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	delivered   prometheus.Counter
	dropped     prometheus.Counter
}

// NewMetrics registers the hub collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botpos_chat_ws_connections",
			Help: "Current number of active websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botpos_chat_ws_rooms",
			Help: "Current number of websocket rooms.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botpos_chat_ws_messages_delivered_total",
			Help: "Total websocket messages delivered to clients.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botpos_chat_ws_clients_dropped_total",
			Help: "Clients disconnected because their send buffer was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.rooms, m.delivered, m.dropped)
	}
	return m
}

func (m *Metrics) incConnections() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) decConnections() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) setRooms(count int) {
	if m != nil {
		m.rooms.Set(float64(count))
	}
}

func (m *Metrics) addDelivered(count int) {
	if m != nil {
		m.delivered.Add(float64(count))
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
