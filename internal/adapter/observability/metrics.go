package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts requests by route/method/status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// JudgeRequestsTotal counts judge calls by operation and outcome.
	JudgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_requests_total",
			Help: "Total number of LLM judge requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	// JudgeRequestDuration observes judge call latency.
	JudgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_request_duration_seconds",
			Help:    "LLM judge request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
	// WritingFallbacksTotal counts degraded writing evaluations by reason.
	WritingFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writing_fallbacks_total",
			Help: "Writing evaluations that degraded to the fallback result",
		},
		[]string{"reason"},
	)

	// PipelineRunsTotal counts pipeline runs by terminal status.
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total scoring pipeline runs by terminal status",
		},
		[]string{"status"},
	)
	// PipelineStepDuration observes per-step pipeline latency.
	PipelineStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_step_duration_seconds",
			Help:    "Scoring pipeline step duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"step"},
	)
	// RecommendationBandsTotal counts final bands produced.
	RecommendationBandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_bands_total",
			Help: "Final recommendation bands produced",
		},
		[]string{"band"},
	)
	// EmailDispatchTotal counts assessor email outcomes.
	EmailDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Assessor report email dispatch outcomes",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		JudgeRequestsTotal,
		JudgeRequestDuration,
		WritingFallbacksTotal,
		PipelineRunsTotal,
		PipelineStepDuration,
		RecommendationBandsTotal,
		EmailDispatchTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latency per chi route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
