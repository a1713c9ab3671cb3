// Package metrics exposes process-wide hub gauges and counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "connections",
		Help:      "Live client connections.",
	})

	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "rooms",
		Help:      "Rooms currently in the directory.",
	})

	VoiceParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "voice_participants",
		Help:      "Participants across all voice rooms.",
	})

	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "frames_sent_total",
		Help:      "Frames delivered to client send queues.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped to backpressure or closed connections.",
	})

	SignalsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "convoy",
		Subsystem: "hub",
		Name:      "signals_relayed_total",
		Help:      "Call-setup payloads forwarded to target sessions.",
	})
)

func Handler() http.Handler { return promhttp.Handler() }
