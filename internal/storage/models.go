package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Artifact is a history row for one generated .blame file. Regenerating the
// same artifact path replaces the row.
type Artifact struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	SourcePath   string    `json:"source_path"`
	ArtifactPath string    `json:"artifact_path"`
	Bytes        int64     `json:"bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Cleanup is one confirmed reclaim of the artifact store.
type Cleanup struct {
	ID         string    `json:"id"`
	Removed    int       `json:"removed"`
	BytesFreed int64     `json:"bytes_freed"`
	CreatedAt  time.Time `json:"created_at"`
}
