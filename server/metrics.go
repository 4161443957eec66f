package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intentd"

// Metrics holds the server's Prometheus collectors on a private registry,
// so several servers (tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Predictions *prometheus.CounterVec
	UploadBytes prometheus.Histogram
	AudioLength prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by intent label",
		}, []string{"intent"}),
		UploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Size of uploaded audio files",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		AudioLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_seconds",
			Help:      "Length of decodable uploaded audio",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(m.Requests, m.Duration, m.Predictions, m.UploadBytes, m.AudioLength)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
