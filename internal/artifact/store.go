package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRootName is the directory created under the system temp dir.
const DefaultRootName = "vsc-productivity-pack"

// Well-known categories, one per producing feature.
const (
	CategoryP4Annotate = "p4annotate"
	CategoryGitBlame   = "gitblame"
)

// ErrInvalidCategory is returned when a category is not a simple directory name.
var ErrInvalidCategory = errors.New("invalid category name")

// StoreAccessError reports a failed directory creation, scan, or removal.
type StoreAccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("artifact store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreAccessError) Unwrap() error { return e.Err }

// Store is a scratch directory namespace rooted at <tempDir>/<rootName>.
//
// The store does not lock. Concurrent ReclaimAll and writes into the same
// category may or may not remove the freshly written file.
type Store struct {
	root      string
	logger    *slog.Logger
	removeAll func(path string) error
}

// Options configures a Store. Empty fields fall back to defaults.
type Options struct {
	TempDir  string
	RootName string
	Logger   *slog.Logger
	// RemoveAll deletes one top-level entry during ReclaimAll. Nil means
	// os.RemoveAll.
	RemoveAll func(path string) error
}

// New returns a Store. It does not touch the filesystem.
func New(opts Options) *Store {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = SystemTempDir(os.Getenv)
	}
	name := opts.RootName
	if name == "" {
		name = DefaultRootName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removeAll := opts.RemoveAll
	if removeAll == nil {
		removeAll = os.RemoveAll
	}
	return &Store{root: filepath.Join(tempDir, name), logger: logger, removeAll: removeAll}
}

// SystemTempDir returns the first non-empty of TMPDIR, TEMP and TMP, or /tmp.
func SystemTempDir(getenv func(string) string) string {
	for _, key := range []string{"TMPDIR", "TEMP", "TMP"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return "/tmp"
}

// Root returns the root path without creating it.
func (s *Store) Root() string {
	return s.root
}

// ResolveRoot returns the root directory, creating it and any missing
// ancestors. A directory that already exists (or appears concurrently) is
// not an error.
func (s *Store) ResolveRoot() (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", &StoreAccessError{Op: "create", Path: s.root, Err: err}
	}
	return s.root, nil
}

// ResolveSubdir returns root/category, creating it if absent.
func (s *Store) ResolveSubdir(category string) (string, error) {
	if err := validateCategory(category); err != nil {
		return "", err
	}
	root, err := s.ResolveRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StoreAccessError{Op: "create", Path: dir, Err: err}
	}
	return dir, nil
}

func validateCategory(category string) error {
	switch {
	case category == "", category == ".", category == "..":
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	case strings.ContainsAny(category, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidCategory, category)
	case filepath.VolumeName(category) != "":
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

// ComputeSize returns the total size in bytes of all regular files under
// the root. A missing root yields 0. Symlinks are not followed.
func (s *Store) ComputeSize() (int64, error) {
	size, _, err := treeSize(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return size, err
}

// ReclaimAll removes every top-level entry under the root and returns how
// many were removed. Entries are removed in os.ReadDir order (by filename);
// on the first failure the count so far is returned with the error and
// the remaining entries are left in place.
func (s *Store) ReclaimAll() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, &StoreAccessError{Op: "list", Path: s.root, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		p := filepath.Join(s.root, entry.Name())
		if err := s.removeAll(p); err != nil {
			s.logger.Warn("artifact store: reclaim stopped", "path", p, "removed", removed, "error", err)
			return removed, &StoreAccessError{Op: "remove", Path: p, Err: err}
		}
		removed++
	}
	s.logger.Debug("artifact store: reclaimed", "root", s.root, "entries", removed)
	return removed, nil
}

// CategoryUsage summarizes one top-level entry of the store.
type CategoryUsage struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
	Files int    `json:"files"`
}

// Categories reports the size of each top-level entry under the root.
func (s *Store) Categories() ([]CategoryUsage, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StoreAccessError{Op: "list", Path: s.root, Err: err}
	}

	usage := make([]CategoryUsage, 0, len(entries))
	for _, entry := range entries {
		size, files, err := treeSize(filepath.Join(s.root, entry.Name()))
		if err != nil {
			return nil, err
		}
		usage = append(usage, CategoryUsage{Name: entry.Name(), Bytes: size, Files: files})
	}
	return usage, nil
}

// treeSize sums regular files under path, which may itself be a file.
func treeSize(path string) (int64, int, error) {
	var (
		total int64
		files int
	)
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != path && errors.Is(err, fs.ErrNotExist) {
				// Removed while walking.
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		files++
		return nil
	})
	if err != nil {
		return 0, 0, &StoreAccessError{Op: "scan", Path: path, Err: err}
	}
	return total, files, nil
}
