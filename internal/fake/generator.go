// Package fake provides utilities for seeding the registry with random servers for development.
package fake

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/masterlist/internal/models"
	"github.com/woozymasta/masterlist/internal/registry"
)

// SeedRegistry inserts count randomized servers and returns how many were stored.
// Every server gets its own address so the per-address limit never applies.
func SeedRegistry(reg *registry.Registry, count int) int {
	types := []string{"dedicated", "listen", "private"}
	maps := []string{"mp_box", "mp_canyon", "mp_harbor", "mp_orbit", "mp_refinery"}
	modes := []string{"tdm", "ctf", "koth", "ffa"}
	tags := []string{"PvP", "EU", "US", "Casual", "Hardcore"}
	names := []string{"viper", "ghost", "nomad", "atlas", "rook", "ember", "pilot"}

	stored := 0
	for i := 0; i < count; i++ {
		players := make([]models.Player, rand.Intn(16))
		for p := range players {
			players[p] = models.Player{
				Name:  fmt.Sprintf("%s%d", names[rand.Intn(len(names))], rand.Intn(100)),
				Gen:   rand.Intn(3),
				Level: rand.Intn(100) + 1,
				Team:  rand.Intn(2) + 1,
			}
		}

		rec := models.ServerRecord{
			Type:     types[rand.Intn(len(types))],
			Hostname: fmt.Sprintf("Arena #%d [%s]", i+1, tags[rand.Intn(len(tags))]),
			MapName:  maps[rand.Intn(len(maps))],
			GameMode: modes[rand.Intn(len(modes))],
			IP:       fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff),
			Port:     37015 + rand.Intn(100),
			Players:  players,
		}

		if _, _, err := reg.Upsert(rec); err != nil {
			log.Warn().Err(err).Msg("Failed to seed fake server")
			continue
		}
		stored++
	}

	log.Info().Int("servers", stored).Msg("Registry seeded with fake servers")
	return stored
}
