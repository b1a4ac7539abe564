package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterbox",
		Name:      "messages_sent_total",
		Help:      "Messages written as a twin pair, by kind.",
	}, []string{"kind"})

	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterbox",
		Name:      "send_failures_total",
		Help:      "Send attempts that failed, by stage.",
	}, []string{"stage"})

	Propagations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterbox",
		Name:      "delivery_propagations_total",
		Help:      "Delivery flag propagation onto the sender twin, by outcome.",
	}, []string{"outcome"})

	PresencePublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterbox",
		Name:      "presence_publishes_total",
		Help:      "Presence records merged, by typing state.",
	}, []string{"typing"})

	NotificationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterbox",
		Name:      "notifications_created_total",
		Help:      "Notifications fanned out, by kind.",
	}, []string{"kind"})

	ActiveConversations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatterbox",
		Name:      "active_conversation_sessions",
		Help:      "Conversation sessions currently open over websocket.",
	})
)

// Registry holds every collector above. It is separate from the default
// registry so tests can build several servers in one process.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		MessagesSent,
		SendFailures,
		Propagations,
		PresencePublishes,
		NotificationsCreated,
		ActiveConversations,
	)
}
