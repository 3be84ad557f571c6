// Package maintenance provides one-shot tasks that clean the history database.
package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/masterlist/internal/config"
)

// Pruner deletes history rows.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByServerID(ctx context.Context, id string) (int64, error)
}

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store Pruner, now time.Time) bool {
	ran := false

	if cfg.Storage.PruneOlder > 0 {
		ran = true
		cutoff := now.Add(-cfg.Storage.PruneOlder)
		log.Info().Time("cutoff", cutoff).Msg("Pruning stale history...")

		count, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune history")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}
	}

	if cfg.Storage.PruneServer != "" {
		ran = true
		log.Info().Str("id", cfg.Storage.PruneServer).Msg("Pruning server history...")

		count, err := store.DeleteByServerID(ctx, cfg.Storage.PruneServer)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune server history")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}
	}

	return ran
}
