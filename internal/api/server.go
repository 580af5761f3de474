package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"arena-brawl/internal/config"
	"arena-brawl/internal/room"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the websocket hub.
type Server struct {
	registry    *room.Registry
	hub         *Hub
	router      http.Handler
	rateLimiter *IPRateLimiter
	http        *http.Server
	log         *zap.Logger
}

// NewServer wires the router and hub around a registry.
//
// Network listeners are not opened until Start is called, so tests can use
// Router() with httptest instead.
func NewServer(registry *room.Registry, cfg config.AppConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		registry: registry,
		log:      log,
		hub: NewHub(HubOptions{
			Registry: registry,
			Limits:   cfg.Limits,
			Origins:  cfg.Server.AllowedOrigins,
			Logger:   log.Named("ws"),
		}),
		rateLimiter: NewIPRateLimiter(RateLimitConfig{
			RequestsPerSecond: cfg.Limits.HTTPRequestsPerSec,
			Burst:             cfg.Limits.HTTPBurst,
		}),
	}
	s.router = NewRouter(RouterConfig{
		Registry:       registry,
		Hub:            s.hub,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.Server.AllowedOrigins,
		StaticFilesDir: cfg.Server.StaticDir,
	})
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.log.Info("api server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler { return s.router }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Shutdown stops accepting requests, closes every socket and stops all
// rooms.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if hubErr := s.hub.Shutdown(ctx); hubErr != nil && err == nil {
		err = hubErr
	}
	s.registry.Shutdown()
	s.rateLimiter.Stop()
	return err
}
