package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the advertisement listener
type Metrics struct {
	// Datagram metrics
	DatagramsReceived prometheus.Counter
	DatagramsDecoded  prometheus.Counter
	DatagramsDropped  prometheus.Counter
	DecodeErrors      *prometheus.CounterVec
	DecodeWarnings    prometheus.Counter
	DatagramSize      prometheus.Histogram
	QueueSize         prometheus.Gauge

	// Advertisement metrics
	AdvertisementsByType *prometheus.CounterVec
	ChannelsSeen         prometheus.Counter

	// Registry metrics
	NodesTracked prometheus.Gauge
	NodesExpired prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Datagram metrics
		DatagramsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_datagrams_received_total",
			Help: "Total number of multicast datagrams received",
		}),
		DatagramsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_datagrams_decoded_total",
			Help: "Total number of datagrams decoded into advertisements",
		}),
		DatagramsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_datagrams_dropped_total",
			Help: "Total number of datagrams dropped because the decode queue was full",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lwadv_decode_errors_total",
			Help: "Total number of decode failures by error kind",
		}, []string{"kind"}),
		DecodeWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_decode_warnings_total",
			Help: "Total number of protocol assumption violations on decodable messages",
		}),
		DatagramSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lwadv_datagram_size_bytes",
			Help:    "Size of received advertisement datagrams in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 2, 8), // 64B to ~8KB
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lwadv_decode_queue_size",
			Help: "Current number of datagrams waiting to be decoded",
		}),

		// Advertisement metrics
		AdvertisementsByType: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lwadv_advertisements_total",
			Help: "Total number of decoded advertisements by advertisement type",
		}, []string{"type"}),
		ChannelsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_channels_seen_total",
			Help: "Total number of channel descriptors decoded",
		}),

		// Registry metrics
		NodesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lwadv_nodes_tracked",
			Help: "Current number of nodes in the registry",
		}),
		NodesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lwadv_nodes_expired_total",
			Help: "Total number of nodes dropped after going silent",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lwadv_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lwadv_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lwadv_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordDatagramReceived counts one received datagram and its size
func (m *Metrics) RecordDatagramReceived(size int) {
	m.DatagramsReceived.Inc()
	m.DatagramSize.Observe(float64(size))
}

// RecordDatagramDropped counts one datagram dropped on queue overflow
func (m *Metrics) RecordDatagramDropped() {
	m.DatagramsDropped.Inc()
}

// RecordDecoded counts one decoded advertisement with its type,
// channel count and any warnings it carried
func (m *Metrics) RecordDecoded(advType uint8, channels, warnings int) {
	m.DatagramsDecoded.Inc()
	m.AdvertisementsByType.WithLabelValues(typeLabel(advType)).Inc()
	m.ChannelsSeen.Add(float64(channels))
	m.DecodeWarnings.Add(float64(warnings))
}

// RecordDecodeError counts one decode failure by kind label
func (m *Metrics) RecordDecodeError(kind string) {
	m.DecodeErrors.WithLabelValues(kind).Inc()
}

// SetQueueSize sets the current decode queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// SetNodesTracked sets the current registry size
func (m *Metrics) SetNodesTracked(count int) {
	m.NodesTracked.Set(float64(count))
}

// RecordNodeExpired counts one node dropped by the registry janitor
func (m *Metrics) RecordNodeExpired() {
	m.NodesExpired.Inc()
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error response
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

func typeLabel(advType uint8) string {
	switch advType {
	case 1:
		return "sources"
	case 2:
		return "node_summary"
	case 3:
		return "type3"
	case 4:
		return "type4"
	default:
		return "unknown"
	}
}
