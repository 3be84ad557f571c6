// main is the entry point of the masterlist service.
// It initializes the configuration, logger, history database, GeoIP provider, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/masterlist/internal/config"
	"github.com/woozymasta/masterlist/internal/fake"
	"github.com/woozymasta/masterlist/internal/game"
	"github.com/woozymasta/masterlist/internal/geoip"
	"github.com/woozymasta/masterlist/internal/logger"
	"github.com/woozymasta/masterlist/internal/maintenance"
	"github.com/woozymasta/masterlist/internal/registry"
	"github.com/woozymasta/masterlist/internal/server"
	"github.com/woozymasta/masterlist/internal/storage"
)

func main() {
	cfg := config.Parse()

	logCloser := logger.Setup(cfg.Logger)
	defer func() { _ = logCloser.Close() }()
	log.Info().Msg("Starting masterlist service...")

	deps := server.Deps{
		Registry: registry.New(registry.Options{MaxPerIP: cfg.Registry.MaxPerIP}),
		Prober:   game.NewProber(cfg.A2S),
	}

	// GeoIP
	if geo := openGeoIP(cfg.GeoIP); geo != nil {
		deps.Geo = geo
		defer func() {
			if err := geo.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	// History database
	var store *storage.Repository
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize history database")
		}

		if maintenance.Run(context.Background(), cfg, store, time.Now()) {
			closeStore(store)
			return
		}

		deps.History = store
	} else {
		log.Info().Msg("History database disabled")
	}

	if cfg.Dev.FakeServers > 0 {
		fake.SeedRegistry(deps.Registry, cfg.Dev.FakeServers)
	}

	srv := server.New(deps, cfg)
	srv.StartWorkers()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Run(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain queued history before the database closes
	srv.StopWorkers()

	if store != nil {
		closeStore(store)
	}

	log.Info().Msg("Server exited")
}

// openGeoIP refreshes and opens the MMDB file. Nil means country lookup is disabled.
func openGeoIP(cfg config.GeoIP) *geoip.Provider {
	if cfg.Path == "" {
		log.Info().Msg("GeoIP disabled")
		return nil
	}

	log.Info().Msg("Checking GeoIP database...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Minute}
	if err := geoip.EnsureDB(ctx, client, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}

func closeStore(store *storage.Repository) {
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}
