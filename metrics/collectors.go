package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "mixer"

type Collectors struct {
	PacketsProcessed   prometheus.Counter
	ProtocolViolations *prometheus.CounterVec
	OutOfOrderSends    prometheus.Counter
	TraitFrames        *prometheus.CounterVec
	KillNotices        prometheus.Counter
	Sessions           prometheus.Gauge
	BroadcastBytes     prometheus.Counter
	TickDuration       prometheus.Histogram
}

// NewCollectors builds the mixer collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		PacketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_processed_total",
			Help:      "Inbound messages drained from session queues.",
		}),
		ProtocolViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Inbound messages dropped as malformed, by message kind.",
		}, []string{"kind"}),
		OutOfOrderSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "out_of_order_sends_total",
			Help:      "Avatar data messages whose sequence number went backwards.",
		}),
		TraitFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trait_frames_total",
			Help:      "Trait frames seen, by outcome.",
		}, []string{"result"}),
		KillNotices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kill_notices_total",
			Help:      "Kill avatar notices sent because of the ignore radius.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Connected sessions.",
		}),
		BroadcastBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_bytes_total",
			Help:      "Avatar data bytes fanned out to clients.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent processing and broadcasting one tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.PacketsProcessed,
			c.ProtocolViolations,
			c.OutOfOrderSends,
			c.TraitFrames,
			c.KillNotices,
			c.Sessions,
			c.BroadcastBytes,
			c.TickDuration,
		)
	}
	return c
}
