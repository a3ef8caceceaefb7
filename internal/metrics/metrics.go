// Package metrics exposes capture pipeline counters on a private prometheus
// registry. All components accept a nil *Metrics and skip recording.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	FramesCaptured prometheus.Counter
	FramesDropped  prometheus.Counter
	FramesRelayed  prometheus.Counter
	CaptureErrors  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "micbridge",
			Name:      "frames_captured_total",
			Help:      "Audio frames read from the device and enqueued.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "micbridge",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because the queue was full or closed.",
		}),
		FramesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "micbridge",
			Name:      "frames_relayed_total",
			Help:      "Frames forwarded from the queue into the pipeline stream.",
		}),
		CaptureErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "micbridge",
			Name:      "capture_errors_total",
			Help:      "Device read failures that terminated a capture loop.",
		}),
	}
	m.registry.MustRegister(m.FramesCaptured, m.FramesDropped, m.FramesRelayed, m.CaptureErrors)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
