// Package api exposes the add-on's preferences, localization and CORS relay
// over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/corsproxy"
	"github.com/CreativeUnicorns/morestickers/i18n"
	"github.com/CreativeUnicorns/morestickers/picker"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	store      *morestickers.Store
	localizer  *i18n.Localizer
	settings   *picker.Settings
	proxy      *corsproxy.Client
	logger     morestickers.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// Config holds configuration for the API server.
type Config struct {
	ListenAddress string
	Store         *morestickers.Store
	// Localizer is optional; without it /localize echoes its input.
	Localizer *i18n.Localizer
	// Proxy defaults to a client for corsproxy.DefaultBaseURL.
	Proxy  *corsproxy.Client
	Logger morestickers.Logger
}

// NewServer creates and configures a new API server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = morestickers.NewDefaultLogger()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.Proxy == nil {
		cfg.Proxy = corsproxy.NewClient()
	}

	s := &Server{
		store:     cfg.Store,
		localizer: cfg.Localizer,
		proxy:     cfg.Proxy,
		logger:    cfg.Logger,
		router:    chi.NewRouter(),
	}
	// A nil *i18n.Localizer must not become a non-nil RegionReloader.
	if cfg.Localizer != nil {
		s.settings = picker.NewSettings(cfg.Store, cfg.Localizer)
	} else {
		s.settings = picker.NewSettings(cfg.Store, nil)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until it stops. A graceful shutdown
// returns nil.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("API server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("API server stopped gracefully")
	return nil
}
