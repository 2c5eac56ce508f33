// Package api provides the HTTP read API for the feed cache daemon.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gfycat/feedcore/internal/feedmanager"
	"github.com/gfycat/feedcore/internal/http/response"
	"github.com/gfycat/feedcore/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	cache          store.FeedCache
	manager        *feedmanager.Manager
	sseHandler     http.Handler
	metricsHandler http.Handler
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// sseHandler and metricsHandler may be nil; their routes are skipped.
func NewServer(cache store.FeedCache, manager *feedmanager.Manager, sseHandler, metricsHandler http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cache:          cache,
		manager:        manager,
		sseHandler:     sseHandler,
		metricsHandler: metricsHandler,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	if s.metricsHandler != nil {
		s.router.Get("/metrics", s.metricsHandler.ServeHTTP)
	}

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Feeds are addressed by their unique key in the "key" query
		// parameter; keys contain slashes and query characters so they
		// do not survive as path segments.
		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.handleGetFeed)
			r.Delete("/", s.handleDropFeed)
			r.Post("/refresh", s.handleRefreshFeed)
			r.Post("/more", s.handleLoadMore)
			r.Post("/new", s.handlePrependNew)
			if s.sseHandler != nil {
				r.Get("/stream", s.sseHandler.ServeHTTP)
			}
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/{contentID}", s.handleGetItem)
			r.Post("/{contentID}/recent", s.handleAddRecent)
			r.Delete("/{contentID}/recent", s.handleRemoveRecent)
		})

		// Moderation actions fan out to every cached feed's filtered view.
		r.Route("/moderation", func(r chi.Router) {
			r.Put("/items/{contentID}/deleted", s.handleMarkDeleted)
			r.Put("/items/{contentID}/published", s.handleMarkPublished)
			r.Put("/items/{contentID}/nsfw", s.handleMarkNSFW)
			r.Put("/items/{contentID}/blocked", s.handleBlockItem)
			r.Put("/users/{username}/blocked", s.handleBlockUser)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
