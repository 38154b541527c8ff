package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const artifactColumns = `id, category, source_path, artifact_path, bytes, created_at`

// RecordArtifact inserts a history row, replacing any row for the same
// artifact path.
func (s *Store) RecordArtifact(a Artifact) error {
	_, err := s.db.Exec(`
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact_path) DO UPDATE SET
			id = excluded.id,
			category = excluded.category,
			source_path = excluded.source_path,
			bytes = excluded.bytes,
			created_at = excluded.created_at`,
		a.ID, a.Category, a.SourcePath, a.ArtifactPath, a.Bytes, a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording artifact %s: %w", a.ArtifactPath, err)
	}
	return nil
}

// GetArtifact returns the row for artifactPath or ErrNotFound.
func (s *Store) GetArtifact(artifactPath string) (Artifact, error) {
	row := s.db.QueryRow(`SELECT `+artifactColumns+` FROM artifacts WHERE artifact_path = ?`, artifactPath)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	return a, err
}

// ListArtifacts returns the most recent history rows first. A category of
// "" matches all categories.
func (s *Store) ListArtifacts(category string, limit int) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT `+artifactColumns+`
		FROM artifacts
		WHERE ? = '' OR category = ?
		ORDER BY created_at DESC LIMIT ?`, category, category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ClearArtifacts deletes all history rows and returns how many were removed.
func (s *Store) ClearArtifacts() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM artifacts`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneMissing deletes the rows for which exists(artifact_path) is false,
// such as after the OS emptied its temp directory.
func (s *Store) PruneMissing(exists func(path string) bool) (int64, error) {
	rows, err := s.db.Query(`SELECT artifact_path FROM artifacts`)
	if err != nil {
		return 0, err
	}
	var gone []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if !exists(p) {
			gone = append(gone, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(gone) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	for _, p := range gone {
		res, err := tx.Exec(`DELETE FROM artifacts WHERE artifact_path = ?`, p)
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", p, err)
		}
		c, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", p, err)
		}
		n += c
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(r rowScanner) (Artifact, error) {
	var a Artifact
	var createdAt string
	if err := r.Scan(&a.ID, &a.Category, &a.SourcePath, &a.ArtifactPath, &a.Bytes, &createdAt); err != nil {
		return Artifact{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Artifact{}, fmt.Errorf("parsing created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}
