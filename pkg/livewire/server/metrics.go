package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server metrics. Counters only touch the request path once per request, at
// response time, to keep the hot loop tight.
var (
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livewire",
		Subsystem: "server",
		Name:      "connections_total",
		Help:      "Total accepted connections",
	})

	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livewire",
		Subsystem: "server",
		Name:      "connections_active",
		Help:      "Connections currently being served",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livewire",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "Requests served, labeled by response status",
	}, []string{"status"})

	upgradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livewire",
		Subsystem: "server",
		Name:      "websocket_upgrades_total",
		Help:      "Connections switched to websocket mode",
	})

	bodySpillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livewire",
		Subsystem: "server",
		Name:      "body_spills_total",
		Help:      "Request bodies spooled to file-backed buffers",
	})
)

func countRequest(status int) {
	requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}
