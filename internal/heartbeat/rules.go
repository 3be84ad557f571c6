package heartbeat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/masterlist/internal/models"
)

const (
	maxHostnameLen = 64
	maxTokenLen    = 32
	minStrictPort  = 1024
)

// Rules holds the validation policy applied to every heartbeat.
type Rules struct {
	// allowedTypes is a set of hashed server types. Empty means any type is accepted.
	allowedTypes map[uint64]struct{}

	// strict enables content checks on top of the required shape.
	strict bool
}

// NewRules builds a policy. allowedTypes restricts the "type" field when non-empty.
func NewRules(strict bool, allowedTypes []string) Rules {
	set := make(map[uint64]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[xxhash.Sum64String(t)] = struct{}{}
	}

	return Rules{allowedTypes: set, strict: strict}
}

// Validate checks the shape of raw and returns the record to store.
// ip is the transport resolved address and replaces anything the payload claimed.
func (rl Rules) Validate(raw RawHeartbeat, ip string) (models.ServerRecord, error) {
	id, err := normalizeID(raw.ID)
	if err != nil {
		return models.ServerRecord{}, err
	}

	rec := models.ServerRecord{ID: id, IP: ip}

	if rec.Type, err = requireString("type", raw.Type); err != nil {
		return models.ServerRecord{}, err
	}
	if rec.Hostname, err = requireString("hostname", raw.Hostname); err != nil {
		return models.ServerRecord{}, err
	}
	if rec.MapName, err = requireString("map_name", raw.MapName); err != nil {
		return models.ServerRecord{}, err
	}
	if rec.GameMode, err = requireString("game_mode", raw.GameMode); err != nil {
		return models.ServerRecord{}, err
	}
	if ip == "" {
		return models.ServerRecord{}, &ValidationError{Field: "ip", Reason: "missing"}
	}

	if raw.Port == nil {
		return models.ServerRecord{}, &ValidationError{Field: "port", Reason: "missing"}
	}
	if *raw.Port < 1 || *raw.Port > 65535 {
		return models.ServerRecord{}, &ValidationError{Field: "port", Reason: fmt.Sprintf("out of range: %d", *raw.Port)}
	}
	rec.Port = *raw.Port

	rec.Players = []models.Player{}
	if raw.Players != nil {
		for i, p := range *raw.Players {
			player, err := validatePlayer(i, p)
			if err != nil {
				return models.ServerRecord{}, err
			}
			rec.Players = append(rec.Players, player)
		}
	}

	if len(rl.allowedTypes) > 0 {
		if _, ok := rl.allowedTypes[xxhash.Sum64String(rec.Type)]; !ok {
			return models.ServerRecord{}, &ValidationError{Field: "type", Reason: "not allowed: " + rec.Type}
		}
	}

	if rl.strict {
		if err := strictCheck(rec); err != nil {
			return models.ServerRecord{}, err
		}
	}

	return rec, nil
}

func requireString(field string, v *string) (string, error) {
	if v == nil {
		return "", &ValidationError{Field: field, Reason: "missing"}
	}

	return *v, nil
}

func validatePlayer(i int, p RawPlayer) (models.Player, error) {
	prefix := fmt.Sprintf("players[%d].", i)

	if p.Name == nil {
		return models.Player{}, &ValidationError{Field: prefix + "name", Reason: "missing"}
	}
	if p.Gen == nil {
		return models.Player{}, &ValidationError{Field: prefix + "gen", Reason: "missing"}
	}
	if p.Level == nil {
		return models.Player{}, &ValidationError{Field: prefix + "level", Reason: "missing"}
	}
	if p.Team == nil {
		return models.Player{}, &ValidationError{Field: prefix + "team", Reason: "missing"}
	}

	return models.Player{Name: *p.Name, Gen: *p.Gen, Level: *p.Level, Team: *p.Team}, nil
}

// strictCheck applies content limits on names, tokens and ports.
func strictCheck(rec models.ServerRecord) error {
	if n := utf8.RuneCountInString(rec.Hostname); n == 0 || n > maxHostnameLen {
		return &ValidationError{Field: "hostname", Reason: fmt.Sprintf("must be 1..%d chars", maxHostnameLen)}
	}
	if !isToken(rec.MapName) {
		return &ValidationError{Field: "map_name", Reason: fmt.Sprintf("must be 1..%d chars of a-z and _", maxTokenLen)}
	}
	if !isToken(rec.GameMode) {
		return &ValidationError{Field: "game_mode", Reason: fmt.Sprintf("must be 1..%d chars of a-z and _", maxTokenLen)}
	}
	if rec.Port <= minStrictPort {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("must be higher than %d", minStrictPort)}
	}
	for i, p := range rec.Players {
		if p.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("players[%d].name", i), Reason: "empty"}
		}
	}

	return nil
}

func isToken(s string) bool {
	if s == "" || len(s) > maxTokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && c != '_' {
			return false
		}
	}

	return true
}
