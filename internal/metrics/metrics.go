// Package metrics provides Prometheus metrics for udpbridge.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "udpbridge"
)

// Relay directions.
const (
	DirectionForward = "forward" // host -> destination
	DirectionReverse = "reverse" // destination -> last known sender
)

// Drop reasons.
const (
	DropFiltered  = "filtered"   // sender outside the configured subnet
	DropNoSender  = "no_sender"  // reply arrived before any host-side sender
	DropSendError = "send_error" // transient send failure
)

// Metrics contains all Prometheus metrics for the relay.
type Metrics struct {
	// Relay metrics
	PacketsForwarded *prometheus.CounterVec
	BytesForwarded   *prometheus.CounterVec
	PacketsDropped   *prometheus.CounterVec
	ReceiveErrors    *prometheus.CounterVec

	// Forwarder lifecycle metrics
	ForwardersActive prometheus.Gauge
	ForwarderStarts  prometheus.Counter
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		PacketsForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_forwarded_total",
			Help:      "Total datagrams relayed by port and direction",
		}, []string{"port", "direction"}),
		BytesForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_forwarded_total",
			Help:      "Total payload bytes relayed by port and direction",
		}, []string{"port", "direction"}),
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Total datagrams dropped by port and reason",
		}, []string{"port", "reason"}),
		ReceiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Total transient receive errors by port and direction",
		}, []string{"port", "direction"}),
		ForwardersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forwarders_active",
			Help:      "Number of currently running port forwarders",
		}),
		ForwarderStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarder_starts_total",
			Help:      "Total port forwarders started",
		}),
	}

	return m
}

// RecordForwarded records a relayed datagram.
func (m *Metrics) RecordForwarded(port uint16, direction string, bytes int) {
	p := portLabel(port)
	m.PacketsForwarded.WithLabelValues(p, direction).Inc()
	m.BytesForwarded.WithLabelValues(p, direction).Add(float64(bytes))
}

// RecordDropped records a dropped datagram.
func (m *Metrics) RecordDropped(port uint16, reason string) {
	m.PacketsDropped.WithLabelValues(portLabel(port), reason).Inc()
}

// RecordReceiveError records a transient receive error.
func (m *Metrics) RecordReceiveError(port uint16, direction string) {
	m.ReceiveErrors.WithLabelValues(portLabel(port), direction).Inc()
}

// RecordForwarderStart records a forwarder entering the running state.
func (m *Metrics) RecordForwarderStart() {
	m.ForwardersActive.Inc()
	m.ForwarderStarts.Inc()
}

// RecordForwarderStop records a forwarder stopping.
func (m *Metrics) RecordForwarderStop() {
	m.ForwardersActive.Dec()
}

func portLabel(port uint16) string {
	return strconv.Itoa(int(port))
}
