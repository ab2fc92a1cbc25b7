package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/playback-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/metrics", s.handleMetrics)

			r.Route("/drivers", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDriverRead)).Get("/", s.handleListDrivers)
				r.With(s.requirePermission(auth.PermDriverRead)).Get("/{category}", s.handleGetDriver)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermDriverSelect))
					r.Put("/{category}", s.handleSelectDriver)
					r.Delete("/{category}", s.handleResetDriver)
					r.Post("/{category}/next", s.handleNextDriver)
					r.Post("/{category}/previous", s.handlePreviousDriver)
				})
			})

			r.Route("/lifecycle", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDriverRead)).Get("/status", s.handleLifecycleStatus)
				r.With(s.requirePermission(auth.PermLifecycleControl)).Post("/{command}", s.handleLifecycleCommand)
			})

			r.With(s.requirePermission(auth.PermJournalRead)).Get("/journal", s.handleListJournal)

			r.Route("/catalog", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermCatalogRead))
				r.Get("/", s.handleCatalog)
				r.Get("/cores/{name}", s.handleGetCore)
				r.Get("/cores/{name}/firmware", s.handleCoreFirmware)
				r.Get("/match", s.handleCoresForFile)
			})

			r.Route("/record", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermJournalRead)).Get("/sessions", s.handleListRecordSessions)
				r.With(s.requirePermission(auth.PermLifecycleControl)).Post("/start", s.handleStartRecording)
				r.With(s.requirePermission(auth.PermLifecycleControl)).Post("/stop", s.handleStopRecording)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
