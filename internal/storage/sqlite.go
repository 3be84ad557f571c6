// Package storage keeps the heartbeat history in SQLite.
//
// The live registry is in memory only; this package records who reported and when,
// keyed by (ip, port), so operators can inspect past activity.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/woozymasta/masterlist/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const historyColumns = `ip, port, server_id, type, hostname, map_name, game_mode, country_code,
	players, peak_players, count, first_seen, last_seen`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New opens the database at dbPath, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dbPath, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordHeartbeat inserts a history row or refreshes the existing one for the same (ip, port).
// Count is incremented, descriptive fields follow the latest heartbeat and first_seen is kept.
func (r *Repository) RecordHeartbeat(ctx context.Context, e models.HistoryEntry) error {
	query := `
	INSERT INTO history (` + historyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(ip, port) DO UPDATE SET
		count        = count + 1,
		last_seen    = excluded.last_seen,
		server_id    = excluded.server_id,
		type         = excluded.type,
		hostname     = excluded.hostname,
		map_name     = excluded.map_name,
		game_mode    = excluded.game_mode,
		players      = excluded.players,
		peak_players = MAX(history.peak_players, excluded.players),

		-- Keep a known country when lookup is unavailable
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE history.country_code END;
	`

	_, err := r.db.ExecContext(ctx, query,
		e.IP, e.Port, e.ServerID, e.Type, e.Hostname, e.MapName, e.GameMode, e.CountryCode,
		e.Players, e.PeakPlayers,
		e.FirstSeen.UTC(), e.LastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record heartbeat %s:%d: %w", e.IP, e.Port, err)
	}

	return nil
}

// History returns all rows, most recently seen first.
func (r *Repository) History(ctx context.Context) ([]models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM history ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(
			&e.IP, &e.Port, &e.ServerID, &e.Type, &e.Hostname, &e.MapName, &e.GameMode, &e.CountryCode,
			&e.Players, &e.PeakPlayers, &e.Count, &e.FirstSeen, &e.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// DeleteOlderThan removes rows whose last_seen is before cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE last_seen < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// DeleteByServerID removes rows reported under the given server id.
func (r *Repository) DeleteByServerID(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE server_id = ?`, id)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
