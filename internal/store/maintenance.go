package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns room, message, and unread notification counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, claimant_id IS NOT NULL, COUNT(1) FROM rooms GROUP BY status, claimant_id IS NOT NULL`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("room stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status  string
			claimed int
			count   int
		)
		if err := rows.Scan(&status, &claimed, &count); err != nil {
			return Stats{}, err
		}
		switch RoomStatus(status) {
		case RoomActive:
			stats.ActiveRooms += count
			if claimed != 0 {
				stats.ClaimedRooms += count
			} else {
				stats.UnclaimedRooms += count
			}
		case RoomClosed:
			stats.ClosedRooms += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages`).Scan(&stats.Messages); err != nil {
		return Stats{}, fmt.Errorf("message stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notifications WHERE read = 0`,
	).Scan(&stats.UnreadNotices); err != nil {
		return Stats{}, fmt.Errorf("notification stats: %w", err)
	}
	return stats, nil
}

// CheckHealth returns diagnostic information about the support desk database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	present := make(map[string]struct{}, len(requiredTables))
	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			health.Error = err.Error()
			return health, fmt.Errorf("scan table name: %w", err)
		}
		present[name] = struct{}{}
	}
	rows.Close()
	for _, table := range requiredTables {
		if _, ok := present[table]; !ok {
			health.MissingTables = append(health.MissingTables, table)
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
