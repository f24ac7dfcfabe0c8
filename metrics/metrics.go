// Package metrics exposes Prometheus collectors for the booking service.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

const namespace = "booking"

// Metrics holds the service collectors. Create one per registry.
type Metrics struct {
	reservationEvents *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reservationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_events_total",
			Help:      "Committed reservation changes by event type.",
		}, []string{"event"}),

		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Operations rejected by the booking core, by failure kind.",
		}, []string{"kind"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		gatherer: reg,
	}
}

// ReservationChanged counts committed ledger events.
func (m *Metrics) ReservationChanged(_ context.Context, e booking.Event) {
	m.reservationEvents.WithLabelValues(string(e.Type)).Inc()
}

// Rejected counts a failed operation by its kind.
func (m *Metrics) Rejected(err error) {
	if err == nil {
		return
	}
	m.rejections.WithLabelValues(string(booking.KindOf(err))).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware observes request latency labelled by the chi route pattern,
// so /api/reservations/7 and /api/reservations/8 share one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
