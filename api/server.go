/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. RequestID:  unique ID per request for tracing
  2. Recoverer:  panic -> 500 instead of crash
  3. zap logger: structured request logging
  4. CORS:       cross-origin requests for the form frontend
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates the router with all routes configured.
func NewRouter(h *Handler, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/panels/{panel}", func(r chi.Router) {
			r.Post("/", h.SavePanel)
			r.Get("/values", h.LoadPanel)
		})

		r.Route("/fiscal-years", func(r chi.Router) {
			r.Get("/", h.ListFiscalYears)
			r.Post("/{year}/flags", h.SetYearFlags)
		})

		r.Get("/months", h.ListMonths)
		r.Get("/organization", h.GetOrganization)
		r.Get("/timezone", h.GetTimezone)

		r.Route("/reports/{report}", func(r chi.Router) {
			r.Get("/", h.GetReport)
			r.Post("/pin", h.PinReport)
		})
	})

	r.Get("/health", h.Health)

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
