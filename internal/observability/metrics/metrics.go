package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the intake pipeline.
type PipelineMetrics struct {
	uploadsTotal       *prometheus.CounterVec
	entriesTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	stageLatency       *prometheus.HistogramVec
	batchSize          prometheus.Histogram
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parchi",
			Subsystem: "intake",
			Name:      "uploads_total",
			Help:      "Total chit uploads by outcome",
		}, []string{"status"}),
		entriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parchi",
			Subsystem: "intake",
			Name:      "entries_total",
			Help:      "Total processed entries by outcome",
		}, []string{"outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parchi",
			Subsystem: "intake",
			Name:      "notifications_total",
			Help:      "Total intake invitations by send status",
		}, []string{"status"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parchi",
			Subsystem: "intake",
			Name:      "stage_latency_seconds",
			Help:      "Latency of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parchi",
			Subsystem: "intake",
			Name:      "batch_size",
			Help:      "Entries per accepted batch",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.uploadsTotal, m.entriesTotal, m.notificationsTotal, m.stageLatency, m.batchSize)
	return m
}

func (m *PipelineMetrics) ObserveUpload(status string) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveEntry(outcome string) {
	if m == nil {
		return
	}
	m.entriesTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveStageLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *PipelineMetrics) ObserveBatchSize(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}
