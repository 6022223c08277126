package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ActiveLearningMetrics contains Prometheus metrics for active-learning passes.
type ActiveLearningMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec

	trainedSchemes prometheus.Gauge
	skippedSchemes prometheus.Gauge
	scoredItems    prometheus.Gauge
	queueLength    prometheus.Gauge
	lastSuccess    prometheus.Gauge

	collectors []prometheus.Collector
}

// NewActiveLearningMetrics creates and registers active-learning metrics.
func NewActiveLearningMetrics(registry *prometheus.Registry) (*ActiveLearningMetrics, error) {
	m := &ActiveLearningMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ActiveLearningMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activelearning_operations_total",
			Help: "Total number of active learning operations",
		},
		[]string{"operation", "status"}, // operation: pass, train, reorder; status: success, error, skipped, rejected
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activelearning_operation_duration_seconds",
			Help:    "Time taken for active learning operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15), // 10ms to ~160s
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activelearning_errors_total",
			Help: "Total number of active learning errors",
		},
		[]string{"operation", "error_type"}, // error_type: configuration, label-resolution, validation
	)

	m.trainedSchemes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activelearning_trained_schemes",
		Help: "Schemes with a trained classifier in the last pass",
	})
	m.skippedSchemes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activelearning_skipped_schemes",
		Help: "Schemes skipped in the last pass",
	})
	m.scoredItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activelearning_scored_items",
		Help: "Instances scored by classifiers in the last pass",
	})
	m.queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activelearning_reordered_items",
		Help: "Length of the new unlabeled ordering in the last pass",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activelearning_last_success_timestamp_seconds",
		Help: "Unix time of the last successful pass",
	})

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.trainedSchemes,
		m.skippedSchemes,
		m.scoredItems,
		m.queueLength,
		m.lastSuccess,
	}
}

// Describe implements the Collector interface
func (m *ActiveLearningMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ActiveLearningMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *ActiveLearningMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *ActiveLearningMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ActiveLearningMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordPassSummary sets the last-pass gauges after a successful pass.
func (m *ActiveLearningMetrics) RecordPassSummary(trained, skipped, scored, reordered int) {
	m.trainedSchemes.Set(float64(trained))
	m.skippedSchemes.Set(float64(skipped))
	m.scoredItems.Set(float64(scored))
	m.queueLength.Set(float64(reordered))
	m.lastSuccess.SetToCurrentTime()
}
