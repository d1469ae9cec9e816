/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile frontend

ROUTE GROUPS:
  /api/clock/*      Check-in/out and pause transitions
  /api/intervals/*  Manual interval CRUD and range listing
  /api/rates/*      Rate catalog (admin mutations)
  /api/holidays/*   Holiday calendar
  /api/absences/*   Flat-rate absence records
  /api/reports/*    Monthly summary, daily and weekly reports
  /api/audit        Audit trail (admin)

SECURITY NOTE:
  Identity comes from the X-User-ID / X-User-Role headers set by the
  authenticating proxy. This service performs no authentication itself.

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
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Clock routes
		r.Route("/clock", func(r chi.Router) {
			r.Post("/check-in", h.CheckIn)
			r.Post("/check-out", h.CheckOut)
			r.Post("/pause/start", h.PauseStart)
			r.Post("/pause/stop", h.PauseStop)
			r.Get("/status", h.Status)
		})

		// Interval routes
		r.Route("/intervals", func(r chi.Router) {
			r.Get("/", h.ListIntervals)
			r.Post("/", h.CreateInterval)
			r.Put("/{id}", h.UpdateInterval)
			r.Delete("/{id}", h.DeleteInterval)
		})

		// Rate routes
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Post("/", h.CreateRate)
			r.Put("/{id}", h.UpdateRate)
			r.Delete("/{id}", h.DeleteRate)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Absence routes
		r.Route("/absences", func(r chi.Router) {
			r.Get("/", h.ListAbsences)
			r.Post("/", h.CreateAbsence)
			r.Delete("/{id}", h.DeleteAbsence)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.MonthlySummary)
			r.Get("/daily", h.DailyReport)
			r.Get("/weekly", h.WeeklyReport)
		})

		// Audit routes
		r.Get("/audit", h.QueryAudit)
	})

	return r
}
