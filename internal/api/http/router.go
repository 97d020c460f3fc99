// Package http wires the protocol endpoints into a chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sealdrop/sealdrop/internal/api/http/handler"
	"github.com/sealdrop/sealdrop/internal/api/http/middleware"
	"github.com/sealdrop/sealdrop/internal/logger"
)

// NewRouter builds the HTTP routing table for the service.
func NewRouter(h *handler.Handler, l *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLogging(l).Handle)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1/files", func(r chi.Router) {
		r.Post("/", h.Share)
		r.Post("/{fileID}/verify", h.Verify)
		r.Get("/{fileID}/blob", h.DownloadBlob)
	})

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
