package chat

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	appended         *prometheus.CounterVec
	publishFailures  prometheus.Counter
	outboundFailures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botpos_chat_messages_appended_total",
			Help: "Messages stored, by sender type.",
		}, []string{"sender_type"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botpos_chat_event_publish_failures_total",
			Help: "Realtime events that could not be published.",
		}),
		outboundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botpos_chat_outbound_failures_total",
			Help: "Admin messages the channel adapter refused, by channel.",
		}, []string{"channel"}),
	}
	if reg != nil {
		reg.MustRegister(m.appended, m.publishFailures, m.outboundFailures)
	}
	return m
}

func (m *Metrics) messageAppended(sender string) {
	if m != nil {
		m.appended.WithLabelValues(sender).Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.publishFailures.Inc()
	}
}

func (m *Metrics) outboundFailed(channel string) {
	if m != nil {
		m.outboundFailures.WithLabelValues(channel).Inc()
	}
}
