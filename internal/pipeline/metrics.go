package pipeline

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/heatmap"
	"github.com/sanspareilsmyn/latencymap/internal/render"
)

const metricsNamespace = "latencymap"

// Metrics exports the state of the newest column and the session counters.
type Metrics struct {
	records    prometheus.Counter
	violations prometheus.Counter
	frames     prometheus.Counter

	latestSum       *prometheus.GaugeVec
	averageLatency  *prometheus.GaugeVec
	bucketValue     *prometheus.GaugeVec
	deltaTime       prometheus.Gauge
	bucketRangeEdge *prometheus.GaugeVec

	logger *zap.Logger
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		records: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Total number of records read from the input stream.",
		}),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_violations_total",
			Help:      "Total number of protocol violations that ended a session.",
		}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_rendered_total",
			Help:      "Total number of heat map frames drawn.",
		}),
		latestSum: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "latest_column_sum",
			Help:      "Sum over all buckets of the newest column, per metric (events/sec or time waited/sec).",
		}, []string{"metric"}),
		averageLatency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "average_latency",
			Help:      "Average latency in the wire unit, over the whole window or the newest column.",
		}, []string{"scope"}),
		bucketValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "bucket_value",
			Help:      "Value of the newest column per bucket exponent and metric.",
		}, []string{"metric", "bucket"}),
		deltaTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "delta_time_seconds",
			Help:      "Time between the two newest records.",
		}),
		bucketRangeEdge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "bucket_range",
			Help:      "Resolved bucket exponent range of the display.",
		}, []string{"edge"}),
		logger: logger,
	}
	logger.Debug("Metrics registered", zap.String("namespace", metricsNamespace))
	return m
}

// ObserveRecord counts a record read from the stream.
func (m *Metrics) ObserveRecord() {
	m.records.Inc()
}

// ObserveViolation counts a protocol violation.
func (m *Metrics) ObserveViolation() {
	m.violations.Inc()
}

// ObserveRange publishes the resolved bucket range.
func (m *Metrics) ObserveRange(rng heatmap.BucketRange) {
	m.bucketRangeEdge.WithLabelValues("min").Set(float64(rng.Min))
	m.bucketRangeEdge.WithLabelValues("max").Set(float64(rng.Max))
}

// ObserveFrame publishes the newest column of w after it was drawn.
func (m *Metrics) ObserveFrame(w *heatmap.Window) {
	m.frames.Inc()

	latest := w.Latest()
	total, newest := render.Averages(w)
	m.averageLatency.WithLabelValues("window").Set(total)
	m.averageLatency.WithLabelValues("latest").Set(newest)
	m.deltaTime.Set(float64(latest.DeltaTime) / 1e6)

	for _, metric := range []heatmap.Metric{heatmap.Frequency, heatmap.Intensity} {
		name := metric.String()
		m.latestSum.WithLabelValues(name).Set(latest.Sum(metric))
		for bucket := latest.Range.Min; bucket <= latest.Range.Max; bucket++ {
			m.bucketValue.WithLabelValues(name, strconv.Itoa(bucket)).Set(latest.Value(metric, bucket))
		}
	}
}
