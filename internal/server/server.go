// Package server implements the HTTP transport, middleware, and request handlers for the registry.
package server

import (
	"net/http"
	"time"

	"github.com/woozymasta/masterlist/internal/config"
	"github.com/woozymasta/masterlist/internal/heartbeat"
)

// New creates a new Server from its collaborators and configuration.
func New(deps Deps, cfg *config.Config) *Server {
	return &Server{
		registry:       deps.Registry,
		history:        deps.History,
		geo:            deps.Geo,
		prober:         deps.Prober,
		authToken:      cfg.Server.AuthToken,
		trustedPrefix:  cfg.Server.TrustedPrefix,
		realIPHeader:   cfg.Server.RealIPHeader,
		rules:          heartbeat.NewRules(cfg.Registry.Strict, cfg.Registry.AllowedTypes),
		maxBody:        cfg.Server.MaxBodySize,
		workers:        cfg.Server.Workers,
		historyTimeout: 5 * time.Second,

		queue: make(chan historyJob, cfg.Server.QueueSize),
	}
}

// StartWorkers starts the background pool that writes heartbeat history.
func (s *Server) StartWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// StopWorkers closes the history queue and waits until queued jobs are written.
// Heartbeats accepted afterwards are still registered but no longer recorded.
func (s *Server) StopWorkers() {
	s.queueMu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
	s.queueMu.Unlock()

	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /server/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("DELETE /server/remove", s.handleRemove)
	mux.HandleFunc("GET /server", s.handleList)
	mux.HandleFunc("GET /", s.handleIndex)

	if s.authToken != "" {
		mux.Handle("GET /api/history", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleHistory)))
		mux.Handle("GET /api/probe", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleProbe)))
		mux.Handle("GET /api/version", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleVersion)))
	}

	return s.LoggingMiddleware(mux)
}
