package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rentshield"

// Collector exposes Prometheus metrics for inbound HTTP requests and the
// evidence pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	modelCalls      *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	jsonRepairs     *prometheus.CounterVec
	analyses        *prometheus.CounterVec
}

// New constructs a collector on a private registry.
func New() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Latency distribution for each evidence pipeline stage.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 90},
	}, []string{"stage"})

	modelCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "calls_total",
		Help:      "Model calls by backend, model, operation and outcome.",
	}, []string{"backend", "model", "operation", "outcome"})

	modelLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "call_duration_seconds",
		Help:      "Latency of model calls including retries.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"backend", "model", "operation"})

	jsonRepairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "json_repair_total",
		Help:      "Structured replies by the repair step that produced them.",
	}, []string{"method"})

	analyses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evidence",
		Name:      "analyses_total",
		Help:      "Completed evidence analyses by trust tier.",
	}, []string{"tier"})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal, stageDuration, modelCalls, modelLatency, jsonRepairs, analyses,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		stageDuration:   stageDuration,
		modelCalls:      modelCalls,
		modelLatency:    modelLatency,
		jsonRepairs:     jsonRepairs,
		analyses:        analyses,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordModelCall counts a finished model call.
func (c *Collector) RecordModelCall(backend, model, operation, outcome string, d time.Duration) {
	c.modelCalls.WithLabelValues(backend, model, operation, outcome).Inc()
	c.modelLatency.WithLabelValues(backend, model, operation).Observe(d.Seconds())
}

// RecordRepair counts a structured reply by repair method.
func (c *Collector) RecordRepair(method string) {
	c.jsonRepairs.WithLabelValues(method).Inc()
}

// RecordAnalysis counts a completed analysis by tier.
func (c *Collector) RecordAnalysis(tier string) {
	c.analyses.WithLabelValues(tier).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
