package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the upstream and poll counters
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_upstream_requests_total",
			Help: "Requests made to the OpenSky REST API by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrack_upstream_duration_seconds",
			Help:    "OpenSky REST API latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	animationSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_animation_sessions_total",
			Help: "Animation sessions by lifecycle event (started, cancelled, completed, bypassed).",
		},
		[]string{"event"},
	)

	animationTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_animation_ticks_total",
			Help: "Animation frames published.",
		},
	)

	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_poll_cycles_total",
			Help: "View refresh cycles by outcome.",
		},
		[]string{"outcome"},
	)

	activeViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_active_views",
			Help: "Number of connected map views.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		upstreamRequestsTotal,
		upstreamDurationSeconds,
		animationSessionsTotal,
		animationTicksTotal,
		pollCyclesTotal,
		activeViews,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one OpenSky request
func ObserveUpstream(endpoint, outcome string, elapsed time.Duration) {
	upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	upstreamDurationSeconds.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// AnimationEvent counts a session lifecycle event
func AnimationEvent(event string) {
	animationSessionsTotal.WithLabelValues(event).Inc()
}

// AnimationTick counts a published frame
func AnimationTick() {
	animationTicksTotal.Inc()
}

// PollCycle counts a refresh cycle
func PollCycle(outcome string) {
	pollCyclesTotal.WithLabelValues(outcome).Inc()
}

// ViewConnected and ViewDisconnected track the active views gauge
func ViewConnected()    { activeViews.Inc() }
func ViewDisconnected() { activeViews.Dec() }

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request count and duration for each request. Routes are
// labelled by their chi pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := routeLabel(r)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "other"
}
