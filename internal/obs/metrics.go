package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the support chat collectors.
type Metrics struct {
	MessagesAppended   *prometheus.CounterVec
	AutoResponses      *prometheus.CounterVec
	StaleAutoResponses prometheus.Counter
	SuppressedActions  *prometheus.CounterVec
	DroppedEvents      prometheus.Counter
	Sessions           prometheus.Gauge
}

// NewMetrics registers the collectors on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "messages_appended_total",
			Help:      "Messages appended to conversation logs, by sender.",
		}, []string{"sender"}),
		AutoResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "auto_responses_total",
			Help:      "Auto-responder replies delivered, by intent category.",
		}, []string{"category"}),
		StaleAutoResponses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "stale_auto_responses_total",
			Help:      "Delayed auto-responses discarded because their conversation was cleared or closed.",
		}),
		SuppressedActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "suppressed_actions_total",
			Help:      "Widget actions dropped by validation guards, by reason.",
		}, []string{"reason"}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "support_chat",
			Name:      "dropped_events_total",
			Help:      "Push events dropped because a subscriber buffer was full.",
		}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "support_chat",
			Name:      "sessions",
			Help:      "Widget sessions held in memory.",
		}),
	}
}
