package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors exported by the daemon. Collectors are
// registered against an explicit registerer so tests can use isolated
// registries.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	ImagesProcessed prometheus.Counter
	ImageErrors     prometheus.Counter
	RunsInFlight    prometheus.Gauge
}

// New creates a metrics bundle backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageseo_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imageseo_http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageseo_runs_total",
				Help: "Total number of pipeline runs.",
			},
			[]string{"trigger", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imageseo_run_duration_seconds",
				Help:    "Duration of pipeline runs.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"trigger"},
		),
		ImagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "imageseo_images_processed_total",
			Help: "Images successfully updated with generated metadata.",
		}),
		ImageErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "imageseo_image_errors_total",
			Help: "Images that failed generation or write-back.",
		}),
		RunsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "imageseo_runs_in_flight",
			Help: "Pipeline runs currently executing.",
		}),
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one pipeline run.
func (m *Metrics) ObserveRun(trigger string, failed bool, duration time.Duration, processed, errs int) {
	status := "success"
	if failed {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(trigger, status).Inc()
	m.RunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	m.ImagesProcessed.Add(float64(processed))
	m.ImageErrors.Add(float64(errs))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments an HTTP handler with request counters and
// latency histograms.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)

		status := strconv.Itoa(recorder.statusCode)
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration.Seconds())
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
	})
}
