// Package annotation persists rendered blame text into the artifact store.
package annotation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/vscpp/internal/artifact"
)

// Extension is appended to the source file's base name.
const Extension = ".blame"

// WriteError reports a failed artifact write.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer writes blame text as <base>.blame inside a store category.
type Writer struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewWriter returns a Writer backed by store.
func NewWriter(store *artifact.Store) *Writer {
	return &Writer{store: store, logger: slog.Default()}
}

// ArtifactName returns the file name used for sourcePath.
func ArtifactName(sourcePath string) string {
	return filepath.Base(sourcePath) + Extension
}

// Write stores text for sourcePath under category, replacing any earlier
// artifact of the same name, and returns the absolute path written.
// The replacement is a rename, so readers never see a partial file.
func (w *Writer) Write(category, sourcePath, text string) (string, error) {
	dir, err := w.store.ResolveSubdir(category)
	if err != nil {
		return "", err
	}

	target, err := filepath.Abs(filepath.Join(dir, ArtifactName(sourcePath)))
	if err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*"+Extension)
	if err != nil {
		return "", &WriteError{Path: target, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &WriteError{Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &WriteError{Path: target, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", &WriteError{Path: target, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", &WriteError{Path: target, Err: err}
	}

	w.logger.Debug("annotation written", "path", target, "bytes", len(text))
	return target, nil
}
