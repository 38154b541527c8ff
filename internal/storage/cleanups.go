package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordCleanup stores one confirmed cleanup run.
func (s *Store) RecordCleanup(c Cleanup) error {
	_, err := s.db.Exec(`
		INSERT INTO cleanups (id, removed, bytes_freed, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.Removed, c.BytesFreed, c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording cleanup: %w", err)
	}
	return nil
}

// LastCleanup returns the most recent cleanup run, or ErrNotFound.
func (s *Store) LastCleanup() (Cleanup, error) {
	var c Cleanup
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, removed, bytes_freed, created_at
		FROM cleanups ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &c.Removed, &c.BytesFreed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Cleanup{}, ErrNotFound
	}
	if err != nil {
		return Cleanup{}, err
	}
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Cleanup{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return c, nil
}
