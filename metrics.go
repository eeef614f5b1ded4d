package loom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "frames_total",
			Help:      "Render loop ticks, including empty frames.",
		},
	)
	clientsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "clients_connected",
			Help:      "Currently connected clients.",
		},
	)
	surfacesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "surfaces_active",
			Help:      "Live surfaces across all clients.",
		},
	)
	buffersOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "buffers_outstanding",
			Help:      "Live buffer pool allocations.",
		},
	)
	bufferBytesOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "buffer_bytes_outstanding",
			Help:      "Bytes currently allocated from the buffer pool.",
		},
	)
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "dispatch_total",
			Help:      "Dispatched requests by target interface.",
		},
		[]string{"interface"},
	)
	protocolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loom",
			Subsystem: "compositor",
			Name:      "protocol_errors_total",
			Help:      "Protocol errors by severity.",
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers the compositor's metrics with the default
// prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesTotal,
			clientsConnected,
			surfacesActive,
			buffersOutstanding,
			bufferBytesOutstanding,
			dispatchTotal,
			protocolErrorsTotal,
		)
	})
}
