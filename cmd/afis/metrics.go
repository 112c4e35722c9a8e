package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus series exported on /metrics.
type Metrics struct {
	Comparisons   *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
	GalleryPeople prometheus.Gauge

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.Comparisons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afis_comparisons_total",
			Help: "Verify and identify requests partitioned by outcome.",
		},
		[]string{"operation", "result"},
	)
	m.Duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afis_operation_duration_seconds",
			Help:    "Time spent in engine operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"operation"},
	)
	m.Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afis_errors_total",
			Help: "Failed requests partitioned by HTTP status.",
		},
		[]string{"status"},
	)
	m.GalleryPeople = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "afis_gallery_persons",
			Help: "Persons currently enrolled in the gallery.",
		},
	)
	m.registry.MustRegister(m.Comparisons, m.Duration, m.Errors, m.GalleryPeople)
	return m
}

func (m *Metrics) Observe(operation string, start time.Time) {
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
