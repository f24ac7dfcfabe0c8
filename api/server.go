/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in logs
  2. RealIP:     Client address behind proxies
  3. Logger:     zap request log
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus latency by route pattern (when enabled)
  6. CORS:       Cross-origin requests for the front desk UI

ROUTE GROUPS:
  /api/auth/login                 Credential check, returns the principal
  /api/principals                 Principal registration
  /api/resources/*                Courts and per-court availability
  /api/windows/*                  Time windows
  /api/availability               Grid of every active court for a date
  /api/reservations/*             Booking ledger
  /api/reports/*                  Read-only reports
  /api/seed                       Demo data (only when enabled)
  /healthz, /readyz               Liveness and readiness
  /metrics                        Prometheus scrape endpoint

AUTHENTICATION:
  Every mutating route requires X-Principal-ID naming an active principal.
  Session and token handling is left to a fronting gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", PrincipalHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	if h.metrics != nil {
		r.Method(http.MethodGet, h.metricsPath, h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Route("/principals", func(r chi.Router) {
			r.With(h.requirePrincipal).Post("/", h.RegisterPrincipal)
			r.Get("/{id}", h.GetPrincipal)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Get("/{id}", h.GetResource)
			r.Get("/{id}/availability", h.GetResourceAvailability)
			r.Group(func(r chi.Router) {
				r.Use(h.requirePrincipal)
				r.Post("/", h.CreateResource)
				r.Put("/{id}", h.UpdateResource)
				r.Delete("/{id}", h.DeleteResource)
			})
		})

		r.Route("/windows", func(r chi.Router) {
			r.Get("/", h.ListWindows)
			r.Get("/{id}", h.GetWindow)
			r.Group(func(r chi.Router) {
				r.Use(h.requirePrincipal)
				r.Post("/", h.CreateWindow)
				r.Put("/{id}", h.UpdateWindow)
				r.Delete("/{id}", h.DeleteWindow)
			})
		})

		r.Get("/availability", h.GetAvailabilityGrid)

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.ListReservations)
			r.Get("/by-reference/{ref}", h.GetReservationByReference)
			r.Get("/{id}", h.GetReservation)
			r.Group(func(r chi.Router) {
				r.Use(h.requirePrincipal)
				r.Post("/", h.CreateReservation)
				r.Patch("/{id}/status", h.UpdateReservationStatus)
				r.Patch("/{id}/details", h.UpdateReservationDetails)
				r.Post("/{id}/cancel", h.CancelReservation)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/daily", h.DailyReport)
			r.Get("/revenue", h.RevenueReport)
			r.Get("/utilization", h.UtilizationReport)
			r.Get("/dashboard", h.DashboardReport)
		})

		if h.allowSeed {
			r.Post("/seed", h.Seed)
		}
	})

	return r
}
