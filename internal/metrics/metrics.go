// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestMessagesTotal        *prometheus.CounterVec
	assetFallbackTotal         prometheus.Counter
	assetRetrievalSeconds      *prometheus.HistogramVec
	catalogWritesTotal         *prometheus.CounterVec
	leadsTotal                 *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoved_ingest_messages_total",
				Help: "Inbound channel messages, labeled by pipeline outcome and reason.",
			},
			[]string{"outcome", "reason"},
		)

		assetFallbackTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "autoved_asset_fallback_total",
				Help: "Listings stored with the placeholder image because photo retrieval failed.",
			},
		)

		assetRetrievalSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autoved_asset_retrieval_seconds",
				Help:    "Latency of photo lookup, download and re-host, labeled by result.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"result"},
		)

		catalogWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoved_catalog_writes_total",
				Help: "Catalog append attempts, labeled by status.",
			},
			[]string{"status"},
		)

		leadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoved_leads_total",
				Help: "Contact form submissions relayed to the operators chat, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest counts one processed webhook message.
func ObserveIngest(outcome, reason string) {
	Init()
	ingestMessagesTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveAssetRetrieval records how long photo retrieval took and whether it succeeded.
func ObserveAssetRetrieval(d time.Duration, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
		assetFallbackTotal.Inc()
	}
	assetRetrievalSeconds.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveCatalogWrite counts a catalog append by status ("ok" or "error").
func ObserveCatalogWrite(status string) {
	Init()
	catalogWritesTotal.WithLabelValues(status).Inc()
}

// ObserveLead counts a contact form relay by status.
func ObserveLead(status string) {
	Init()
	leadsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}
