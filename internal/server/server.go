// Package server provides the HTTP API for intentbot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/config"
	"github.com/hyperjump/intentbot/internal/storage"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the chat API.
type Server struct {
	responder chatbot.Responder
	holder    *chatbot.Holder // nil when the engine has no snapshot (genai)
	storage   storage.Storage // optional; when set, exchanges are logged
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server. holder and store may be nil.
func NewServer(
	responder chatbot.Responder,
	holder *chatbot.Holder,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return &Server{
		responder: responder,
		holder:    holder,
		storage:   store,
		config:    cfg,
		logger:    utils.OrNop(logger),
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/status", s.handleStatus)
		r.Post("/reload", s.handleReload)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("engine", s.config.Chatbot.Engine))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
