// Package metrics provides Prometheus instrumentation for body transcoding.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Directions a body can be transcoded in.
const (
	DirectionFromBytes = "from_bytes"
	DirectionFromValue = "from_value"
	DirectionToBytes   = "to_bytes"
)

// Metrics holds the Prometheus collectors updated by a body transcoder. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TranscodesTotal *prometheus.CounterVec
	FailuresTotal   *prometheus.CounterVec
	ContentSize     *prometheus.HistogramVec
}

// New creates the collectors under namespace and registers them with registerer. A
// nil registerer leaves them unregistered.
func New(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "spanbody"
	}

	factory := promauto.With(registerer)

	return &Metrics{
		TranscodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transcodes_total",
				Help:      "Total number of bodies transcoded",
			},
			[]string{"direction", "family"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transcode_failures_total",
				Help:      "Total number of failed body transcodes",
			},
			[]string{"direction", "error"},
		),
		ContentSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "content_size_bytes",
				Help:      "Size of transcoded body content",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"direction", "family"},
		),
	}
}

// ObserveTranscode records a successful transcode of size bytes.
func (m *Metrics) ObserveTranscode(direction, family string, size int) {
	if m == nil {
		return
	}
	m.TranscodesTotal.WithLabelValues(direction, family).Inc()
	m.ContentSize.WithLabelValues(direction, family).Observe(float64(size))
}

// ObserveFailure records a failed transcode by error type name.
func (m *Metrics) ObserveFailure(direction, errorName string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(direction, errorName).Inc()
}
