/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/materials/*      LP pool, coverage, and reservation commits
  /api/reservations/*   Release operations
  /api/work-orders/*    Work-order-wide release

SECURITY NOTE:
  Actor identity is taken from the X-Actor-ID header; there is no
  authentication middleware. Front with an authenticating proxy in
  production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Material routes
		r.Route("/materials/{id}", func(r chi.Router) {
			r.Get("/license-plates", h.ListLicensePlates)
			r.Get("/coverage", h.GetCoverage)
			r.Get("/reservations", h.ListReservations)
			r.Post("/reservations", h.CommitReservations)
			r.Post("/reservations/auto", h.AutoReserve)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Delete("/{id}", h.ReleaseReservation)
		})

		// Work order routes
		r.Route("/work-orders", func(r chi.Router) {
			r.Post("/{id}/release", h.ReleaseWorkOrder)
		})
	})

	return r
}
