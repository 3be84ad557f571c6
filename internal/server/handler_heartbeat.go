package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/masterlist/internal/heartbeat"
	"github.com/woozymasta/masterlist/internal/models"
	"github.com/woozymasta/masterlist/internal/registry"
)

// Heartbeat response bodies expected by game servers.
const (
	bodyCreated        = "OK"
	bodyUpdated        = "Update data"
	bodyInvalidData    = "Invalid data"
	bodyInvalidAddress = "Invalid address"
	bodyLimitReached   = "Too many servers for this address"
)

// handleHeartbeat registers or refreshes a server.
// The payload is decoded and validated before the registry is touched, so a rejected
// heartbeat never leaves a trace in the listing.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ip, err := ResolveSourceIP(r, s.trustedPrefix, s.realIPHeader)
	if err != nil {
		log.Debug().
			Err(err).
			Str("remote", r.RemoteAddr).
			Msg("Unusable source address")

		respondText(w, http.StatusBadRequest, bodyInvalidAddress)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	raw, err := heartbeat.Decode(r.Body)
	if err != nil {
		log.Debug().
			Err(err).
			Str("ip", ip).
			Msg("Invalid heartbeat body")

		respondText(w, http.StatusBadRequest, bodyInvalidData)
		return
	}

	rec, err := s.rules.Validate(raw, ip)
	if err != nil {
		log.Debug().
			Err(err).
			Str("ip", ip).
			Msg("Heartbeat rejected")

		respondText(w, http.StatusBadRequest, bodyInvalidData)
		return
	}

	outcome, stored, err := s.registry.Upsert(rec)
	if err != nil {
		if errors.Is(err, registry.ErrLimitReached) {
			log.Info().
				Str("ip", ip).
				Int("port", rec.Port).
				Msg("Server limit reached for address")

			respondText(w, http.StatusBadRequest, bodyLimitReached)
			return
		}

		log.Error().Err(err).Str("ip", ip).Msg("Registry upsert failed")
		respondText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	log.Debug().
		Str("id", stored.ID).
		Str("ip", stored.IP).
		Int("port", stored.Port).
		Stringer("outcome", outcome).
		Msg("Heartbeat accepted")

	s.enqueueHistory(stored)

	if outcome == registry.Created {
		respondText(w, http.StatusOK, bodyCreated)
		return
	}
	respondText(w, http.StatusOK, bodyUpdated)
}

// enqueueHistory hands an accepted heartbeat to the history workers without blocking.
func (s *Server) enqueueHistory(rec models.ServerRecord) {
	if s.history == nil {
		return
	}

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.stopped {
		log.Debug().
			Str("ip", rec.IP).
			Int("port", rec.Port).
			Msg("History stopped, heartbeat not recorded")
		return
	}

	select {
	case s.queue <- historyJob{Record: rec, Seen: time.Now()}:
	default:
		log.Warn().
			Str("ip", rec.IP).
			Int("port", rec.Port).
			Msg("History queue full, heartbeat not recorded")
	}
}

// worker is a background goroutine that writes queued heartbeats to history.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		s.processJob(job)
	}
}

// processJob resolves the country and upserts one history row.
func (s *Server) processJob(job historyJob) {
	entry := models.HistoryFromRecord(job.Record, job.Seen)
	if s.geo != nil {
		entry.CountryCode = s.geo.CountryCode(entry.IP)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.historyTimeout)
	defer cancel()

	if err := s.history.RecordHeartbeat(ctx, entry); err != nil {
		log.Error().Err(err).Msg("Failed to save heartbeat history")
		return
	}

	log.Trace().
		Str("ip", entry.IP).
		Int("port", entry.Port).
		Str("country", entry.CountryCode).
		Msg("History saved")
}

// respondText writes a plain text response, the format game servers parse.
func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
