package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/masterlist/internal/registry"
	"github.com/woozymasta/masterlist/internal/vars"
)

const greeting = "Hello World!"

// handleIndex serves the liveness greeting.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	respondText(w, http.StatusOK, greeting)
}

// handleList returns every registered server in registry order.
func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.List())
}

// handleRemove deletes a server by id.
// Query params: ?id=srv1
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	if _, err := s.registry.Remove(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			log.Debug().Str("id", id).Msg("Remove for unknown server")
			respondText(w, http.StatusNotFound, "Server not found")
			return
		}

		log.Error().Err(err).Str("id", id).Msg("Registry remove failed")
		respondText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	log.Info().
		Str("id", id).
		Str("ip", s.clientIP(r)).
		Msg("Server removed")

	respondText(w, http.StatusOK, "OK")
}

// handleHistory returns the stored heartbeat history.
// This endpoint is protected by AdminAuthMiddleware.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History disabled", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.history.History(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch history")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

// handleProbe performs a live A2S query to a registered server.
// Query params: ?id=srv1
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		http.Error(w, "Probe disabled", http.StatusServiceUnavailable)
		return
	}

	id := r.URL.Query().Get("id")
	rec, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "Server not found", http.StatusNotFound)
		return
	}

	info, err := s.prober.Probe(r.Context(), rec.IP, rec.Port)
	if err != nil {
		log.Debug().
			Err(err).
			Str("id", id).
			Str("ip", rec.IP).
			Int("port", rec.Port).
			Msg("A2S probe failed")

		respondJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, vars.Info())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
