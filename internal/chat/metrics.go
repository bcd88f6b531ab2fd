package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_registered_sessions",
		Help: "Number of sessions currently present in the registry",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages broadcast by kind",
	}, []string{"kind"})

	BroadcastDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_broadcast_seconds",
		Help:    "Time to attempt delivery of one message to every recipient",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_delivery_failures_total",
		Help: "Deliveries that failed and closed the recipient session",
	})

	HandshakeRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_handshake_rejections_total",
		Help: "Connections closed before registration, by reason",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(BroadcastDuration)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(HandshakeRejections)
}
