package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/eventbridge-go/bridge/transport"
)

// Metrics mirrors bridge statistics into Prometheus collectors for
// production monitoring.
//
// Metrics exposed (all namespaced with "eventbridge_"):
//
// 1. events_sent_total (counter): events in batches the server accepted.
//
// 2. events_failed_total (counter): events in batches that failed after
// the transport exhausted its retries.
//
// 3. events_dropped_total (counter): events shed because the queue was
// full. A rising rate means producers outpace delivery.
//
// 4. batches_sent_total (counter): accepted batches.
//
// 5. send_failures_total (counter): failed flushes by reason.
// Labels: reason (connection_error, timeout, http_error).
//
// 6. queue_depth (gauge): events waiting in the queue.
//
// 7. flush_duration_ms (histogram): wall time of one flush including
// transport retries. Buckets: [1, 5, 10, 50, 100, 500, 1000, 5000, 10000].
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := bridge.NewMetrics(registry)
//	br, err := bridge.New(
//	    bridge.WithAPIKey(key),
//	    bridge.WithMetrics(metrics),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	eventsSent    prometheus.Counter
	eventsFailed  prometheus.Counter
	eventsDropped prometheus.Counter
	batchesSent   prometheus.Counter
	sendFailures  *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	flushDuration prometheus.Histogram
}

// NewMetrics creates and registers all bridge metrics with the provided
// Prometheus registry. Pass prometheus.DefaultRegisterer for the global
// registry, or a private registry for isolation (recommended in tests).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		eventsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Name:      "events_sent_total",
			Help:      "Events contained in batches accepted by the collaboration server",
		}),
		eventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Name:      "events_failed_total",
			Help:      "Events contained in batches that failed after transport retries were exhausted",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Name:      "events_dropped_total",
			Help:      "Events discarded because the bounded queue was full",
		}),
		batchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Name:      "batches_sent_total",
			Help:      "Batches accepted by the collaboration server",
		}),
		sendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Name:      "send_failures_total",
			Help:      "Failed flushes by failure classification",
		}, []string{"reason"}), // reason: connection_error, timeout, http_error
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbridge",
			Name:      "queue_depth",
			Help:      "Events currently waiting in the bounded queue",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventbridge",
			Name:      "flush_duration_ms",
			Help:      "Wall time of one batch flush including transport retries, in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
	}
}

// observeFlush records the outcome of one flush.
func (m *Metrics) observeFlush(batchSize int, latency time.Duration, res transport.Result) {
	m.flushDuration.Observe(float64(latency.Milliseconds()))
	if res.OK() {
		m.eventsSent.Add(float64(batchSize))
		m.batchesSent.Inc()
		return
	}
	m.eventsFailed.Add(float64(batchSize))
	m.sendFailures.WithLabelValues(res.Status.String()).Inc()
}

// eventDropped records one shed event.
func (m *Metrics) eventDropped() {
	m.eventsDropped.Inc()
}

// setQueueDepth updates the queue depth gauge.
func (m *Metrics) setQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}
