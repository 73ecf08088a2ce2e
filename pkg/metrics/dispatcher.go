package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatcherMetrics tracks the asynchronous notification queue.
type DispatcherMetrics struct {
	enqueued  *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	depth     prometheus.Gauge
}

func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	labels := []string{"type"}
	m := &DispatcherMetrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surprisebag_notifications_enqueued_total",
			Help: "Notifications accepted by the dispatcher queue.",
		}, labels),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surprisebag_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full or closed.",
		}, labels),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surprisebag_notifications_delivered_total",
			Help: "Notifications persisted to the inbox.",
		}, labels),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surprisebag_notifications_failed_total",
			Help: "Notifications that could not be persisted.",
		}, labels),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "surprisebag_notifications_queue_depth",
			Help: "Notifications waiting for a worker.",
		}),
	}
	reg.MustRegister(m.enqueued, m.dropped, m.delivered, m.failed, m.depth)
	return m
}

func (m *DispatcherMetrics) IncEnqueued(kind string) {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *DispatcherMetrics) IncDropped(kind string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *DispatcherMetrics) IncDelivered(kind string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *DispatcherMetrics) IncFailed(kind string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *DispatcherMetrics) SetQueueDepth(n int) {
	if m == nil || m.depth == nil {
		return
	}
	m.depth.Set(float64(n))
}
