package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/docingest/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/docingest/internal/api/middlewares"
	"github.com/markdave123-py/docingest/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, docHandler *handlers.DocumentHandler, healthHandler *handlers.HealthHandler, promHandler http.Handler) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, docHandler, healthHandler, promHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv}
}

func newRouter(cfg *config.Config, docHandler *handlers.DocumentHandler, healthHandler *handlers.HealthHandler, promHandler http.Handler) http.Handler {
	// synchronous uploads run the whole pipeline inside the request
	timeout := 60 * time.Second
	if cfg.IngestTimeout > timeout {
		timeout = cfg.IngestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promHandler)

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", healthHandler.Health)
		api.Get("/metrics", healthHandler.Metrics)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.Authenticate(cfg.JWTSecret, cfg.APIKeyHash))
			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{fingerprint}", docHandler.GetDocument)
			protected.Get("/documents/{fingerprint}/status", docHandler.GetStatus)
			protected.Delete("/documents/{fingerprint}", docHandler.DeleteDocument)
		})
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
