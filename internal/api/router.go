package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/relay-sequencer/internal/web"
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

	// Control page, rendered once with the sequence list
	r.Method(http.MethodGet, "/", web.Index(s.ctrl.NamesJSON()))
	r.Handle("/static/*", web.Static())

	r.Get("/status", s.handleStatus)
	r.With(s.authMiddleware).Post("/rpc", s.handleRPC)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/sequences", s.handleListSequences)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
