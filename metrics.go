package embedx

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	lifecycleTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedx",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle state transitions.",
		},
		[]string{"from", "to"},
	)
	lifecycleRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedx",
			Subsystem: "lifecycle",
			Name:      "rejections_total",
			Help:      "Rejected lifecycle, configuration and bridge requests.",
		},
		[]string{"op", "reason"},
	)
	lifecycleState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "embedx",
			Subsystem: "lifecycle",
			Name:      "state",
			Help:      "1 for the current lifecycle state of an instance, 0 otherwise.",
		},
		[]string{"instance", "state"},
	)
	bridgeMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedx",
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Messages handed to the engine or rejected.",
		},
		[]string{"result"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedx",
			Subsystem: "listeners",
			Name:      "notifications_total",
			Help:      "Unload and quit completions fanned out to listeners.",
		},
		[]string{"kind", "requested"},
	)
)

// RegisterMetrics registers the embedx collectors with the default
// Prometheus registerer. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(lifecycleTransitions, lifecycleRejections, lifecycleState, bridgeMessages, notifications)
	})
}

func recordTransition(instance string, from, to State) {
	RegisterMetrics()
	lifecycleTransitions.WithLabelValues(from.String(), to.String()).Inc()
	for _, s := range States() {
		v := 0.0
		if s == to {
			v = 1
		}
		lifecycleState.WithLabelValues(instance, s.String()).Set(v)
	}
}

func recordRejection(op string, err error) {
	RegisterMetrics()
	lifecycleRejections.WithLabelValues(op, reason(err)).Inc()
}

func recordMessage(result string) {
	RegisterMetrics()
	bridgeMessages.WithLabelValues(result).Inc()
}

func recordNotification(kind NotificationKind, requested bool) {
	RegisterMetrics()
	notifications.WithLabelValues(kind.String(), strconv.FormatBool(requested)).Inc()
}
