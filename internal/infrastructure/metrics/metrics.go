package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Broker holds the realtime layer's instrumentation.
type Broker struct {
	ConnectionsActive prometheus.Gauge
	RoomsActive       prometheus.Gauge
	EventsDispatched  *prometheus.CounterVec
	EventsRejected    *prometheus.CounterVec
	MessagesDropped   prometheus.Counter
	Announcements     *prometheus.CounterVec
}

func NewBroker(reg prometheus.Registerer) *Broker {
	b := &Broker{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "connections_active",
			Help:      "Number of live websocket connections.",
		}),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "rooms_active",
			Help:      "Number of rooms with at least one member.",
		}),
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "events_dispatched_total",
			Help:      "Events fanned out to room members, by broadcast kind.",
		}, []string{"event"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "events_rejected_total",
			Help:      "Inbound events dropped by validation, by reason.",
		}, []string{"reason"}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "messages_dropped_total",
			Help:      "Deliveries skipped because a client send buffer was full.",
		}),
		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proofdeck",
			Subsystem: "broker",
			Name:      "announcements_total",
			Help:      "Server-originated events injected through the facade, by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			b.ConnectionsActive,
			b.RoomsActive,
			b.EventsDispatched,
			b.EventsRejected,
			b.MessagesDropped,
			b.Announcements,
		)
	}

	return b
}
