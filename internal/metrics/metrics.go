// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-complaints/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	complaintsCreated prometheus.Counter
	statusChanges     *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	uploadBytes       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complaints_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		complaintsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "complaints_created_total",
			Help: "Complaints filed.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_status_changes_total",
			Help: "Complaint status changes by target status.",
		}, []string{"status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_attachment_uploads_total",
			Help: "Attachment uploads by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "complaints_attachment_upload_bytes_total",
			Help: "Bytes stored in the attachments bucket.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.complaintsCreated,
		m.statusChanges,
		m.uploads,
		m.uploadBytes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request count and latency. Routes are labelled with the
// pattern routes would match, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(routes *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			_, route := routes.Handler(r)
			if route == "" {
				route = "unmatched"
			}
			rec := httpx.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.requestCount.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// The recorders below are nil-safe so callers can run without metrics.

func (m *Metrics) ComplaintCreated() {
	if m != nil {
		m.complaintsCreated.Inc()
	}
}

func (m *Metrics) StatusChanged(status string) {
	if m != nil {
		m.statusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) UploadSucceeded(bytes int64) {
	if m != nil {
		m.uploads.WithLabelValues("ok").Inc()
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) UploadFailed() {
	if m != nil {
		m.uploads.WithLabelValues("failed").Inc()
	}
}
