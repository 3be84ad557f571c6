// Package models defines the data structures shared by the registry, HTTP API and history storage.
package models

import "time"

// Player is a single connected player reported in a heartbeat.
type Player struct {
	Name  string `json:"name"`
	Gen   int    `json:"gen"`
	Level int    `json:"level"`
	Team  int    `json:"team"`
}

// ServerRecord is the last known state of a reporting server.
type ServerRecord struct {
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"type"`
	Hostname string   `json:"hostname"`
	MapName  string   `json:"map_name"`
	GameMode string   `json:"game_mode"`
	IP       string   `json:"ip"`
	Players  []Player `json:"players"`
	Port     int      `json:"port"`
}

// Clone returns a deep copy of the record so callers never share the players slice.
func (r ServerRecord) Clone() ServerRecord {
	out := r
	out.Players = make([]Player, len(r.Players))
	copy(out.Players, r.Players)

	return out
}

// Address returns the "ip:port" key used for address based matching.
func (r ServerRecord) Address() AddressKey {
	return AddressKey{IP: r.IP, Port: r.Port}
}

// AddressKey identifies a server by its resolved source address and listen port.
type AddressKey struct {
	IP   string
	Port int
}

// HistoryEntry is a heartbeat history row stored in the database.
// Rows are keyed by (ip, port) and survive removal from the live registry.
type HistoryEntry struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	ServerID    string    `json:"server_id"`
	Type        string    `json:"type"`
	Hostname    string    `json:"hostname"`
	MapName     string    `json:"map_name"`
	GameMode    string    `json:"game_mode"`
	IP          string    `json:"ip"`
	CountryCode string    `json:"country_code"`
	Port        int       `json:"port"`
	Players     int       `json:"players"`
	PeakPlayers int       `json:"peak_players"`
	Count       int64     `json:"count"`
}

// HistoryFromRecord builds a history row for a heartbeat seen at the given time.
func HistoryFromRecord(r ServerRecord, seen time.Time) HistoryEntry {
	return HistoryEntry{
		ServerID:    r.ID,
		Type:        r.Type,
		Hostname:    r.Hostname,
		MapName:     r.MapName,
		GameMode:    r.GameMode,
		IP:          r.IP,
		Port:        r.Port,
		Players:     len(r.Players),
		PeakPlayers: len(r.Players),
		FirstSeen:   seen,
		LastSeen:    seen,
	}
}
