package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistryRequests    *prometheus.CounterVec
	RegistryDuration    *prometheus.HistogramVec
	HTTPDuration        *prometheus.HistogramVec
	MessagesPublished   prometheus.Counter
	MessagesDropped     prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistryRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nlportal_registry_requests_total",
			Help: "Outbound registry calls by registry, method and status",
		}, []string{"registry", "method", "status"}),
		RegistryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nlportal_registry_request_duration_seconds",
			Help:    "Outbound registry call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"registry", "method"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nlportal_http_request_duration_seconds",
			Help:    "Inbound request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		MessagesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "nlportal_messages_published_total",
			Help: "Portal messages accepted by the broker",
		}),
		MessagesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "nlportal_messages_dropped_total",
			Help: "Portal messages dropped for slow subscribers",
		}),
		ActiveSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "nlportal_message_subscriptions",
			Help: "Open message stream subscriptions",
		}),
	}
}

// ObserveRequest records one registry round trip; status 0 means no response.
func (m *Metrics) ObserveRequest(registry, method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RegistryRequests.WithLabelValues(registry, method, label).Inc()
	m.RegistryDuration.WithLabelValues(registry, method).Observe(elapsed.Seconds())
}

func (m *Metrics) MessagePublished()   { m.MessagesPublished.Inc() }
func (m *Metrics) MessageDropped()     { m.MessagesDropped.Inc() }
func (m *Metrics) SubscriptionOpened() { m.ActiveSubscriptions.Inc() }
func (m *Metrics) SubscriptionClosed() { m.ActiveSubscriptions.Dec() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records latency per matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
