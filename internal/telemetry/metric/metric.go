package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audio_extraction"

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes prometheus.Histogram
	swept       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Finished conversion requests by output format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent persisting and extracting one upload.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"format", "outcome"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Size of persisted uploads.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_swept_total",
			Help:      "Expired audio files removed from the output directory.",
		}),
	}

	reg.MustRegister(m.conversions, m.duration, m.uploadBytes, m.swept)

	return m
}

func (m *Metrics) ObserveConversion(format, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(format, outcome).Inc()
	m.duration.WithLabelValues(format, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveUpload(size int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Observe(float64(size))
}

func (m *Metrics) ArtifactsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
