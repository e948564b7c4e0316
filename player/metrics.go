package player

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	ticks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "embedx",
		Subsystem: "player",
		Name:      "ticks_total",
		Help:      "Ticks processed by the player.",
	})
	drops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embedx",
		Subsystem: "player",
		Name:      "dropped_messages_total",
		Help:      "Messages the player did not deliver.",
	}, []string{"reason"})
	panics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "embedx",
		Subsystem: "player",
		Name:      "panics_total",
		Help:      "Panics recovered from scene code.",
	})
)

// RegisterMetrics registers the player collectors with the default
// Prometheus registerer. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ticks, drops, panics)
	})
}

func recordTick() {
	RegisterMetrics()
	ticks.Inc()
}

func recordDrop(reason string) {
	RegisterMetrics()
	drops.WithLabelValues(reason).Inc()
}

func recordPanic() {
	RegisterMetrics()
	panics.Inc()
}
