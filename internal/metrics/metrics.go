// ABOUTME: Prometheus metrics for the streaming server
// ABOUTME: Encoder throughput, overflow retries and listener counts
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Encoder metrics
	ChunksEncoded   prometheus.Counter
	BytesEncoded    prometheus.Counter
	OverflowRetries prometheus.Counter
	EncodeDuration  prometheus.Histogram
	EncoderErrors   prometheus.Counter

	// Listener metrics
	ActiveListeners *prometheus.GaugeVec
	ListenersTotal  *prometheus.CounterVec
	ChunksDropped   *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. Tests pass their own
// registry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "oggcast_chunks_encoded_total",
			Help: "Total number of audio chunks encoded",
		}),
		BytesEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "oggcast_bytes_encoded_total",
			Help: "Total Ogg Opus bytes produced",
		}),
		OverflowRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "oggcast_overflow_retries_total",
			Help: "Frames that needed a larger output buffer",
		}),
		EncodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "oggcast_encode_duration_seconds",
			Help:    "Time spent encoding one chunk",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to ~200ms
		}),
		EncoderErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "oggcast_encoder_errors_total",
			Help: "Total number of encode failures",
		}),

		ActiveListeners: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oggcast_active_listeners",
				Help: "Number of currently connected listeners",
			},
			[]string{"transport"}, // http or websocket
		),
		ListenersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oggcast_listeners_total",
				Help: "Total number of listeners since server start",
			},
			[]string{"transport"},
		),
		ChunksDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oggcast_chunks_dropped_total",
				Help: "Chunks not delivered to a listener",
			},
			[]string{"reason"},
		),
	}
}

// RecordChunk records one encoded chunk
func (m *Metrics) RecordChunk(size int, elapsed time.Duration, overflows int) {
	m.ChunksEncoded.Inc()
	m.BytesEncoded.Add(float64(size))
	m.EncodeDuration.Observe(elapsed.Seconds())
	if overflows > 0 {
		m.OverflowRetries.Add(float64(overflows))
	}
}

// RecordEncodeError records a failed encode
func (m *Metrics) RecordEncodeError() {
	m.EncoderErrors.Inc()
}

// RecordListenerJoin records a listener connecting
func (m *Metrics) RecordListenerJoin(transport string) {
	m.ActiveListeners.WithLabelValues(transport).Inc()
	m.ListenersTotal.WithLabelValues(transport).Inc()
}

// RecordListenerLeave records a listener disconnecting
func (m *Metrics) RecordListenerLeave(transport string) {
	m.ActiveListeners.WithLabelValues(transport).Dec()
}

// RecordDrop records a chunk that a listener missed
func (m *Metrics) RecordDrop(reason string) {
	m.ChunksDropped.WithLabelValues(reason).Inc()
}
