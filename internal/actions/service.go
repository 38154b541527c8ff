// Package actions implements the user-facing commands: annotate a file
// with Perforce, blame a file with git, and clean up generated artifacts.
// Every failure is reported as a Notice; nothing is returned as a raw error.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/vscpp/internal/annotation"
	"github.com/kalambet/vscpp/internal/artifact"
	"github.com/kalambet/vscpp/internal/blame"
	"github.com/kalambet/vscpp/internal/storage"
	"github.com/kalambet/vscpp/internal/vcs"
)

const p4WorkspaceHint = "This file is not in a Perforce workspace. " +
	"Please ensure P4CLIENT, P4PORT, and P4USER are set. " +
	`Add a p4config.txt file in your depot root or run "p4 set P4CONFIG=p4config.txt"`

// History records generated artifacts and cleanup runs. storage.Store
// satisfies it.
type History interface {
	RecordArtifact(a storage.Artifact) error
	ListArtifacts(category string, limit int) ([]storage.Artifact, error)
	ClearArtifacts() (int64, error)
	PruneMissing(exists func(path string) bool) (int64, error)
	RecordCleanup(c storage.Cleanup) error
	LastCleanup() (storage.Cleanup, error)
}

// Target is the file an action runs on, as the editor host sees it.
type Target struct {
	Path string `json:"path"`
	// Dirty is true when the editor holds unsaved changes.
	Dirty bool `json:"dirty"`
}

// Status summarizes the artifact store.
type Status struct {
	Root       string                   `json:"root"`
	Bytes      int64                    `json:"bytes"`
	Size       string                   `json:"size"`
	Categories []artifact.CategoryUsage `json:"categories"`
	// LastCleanup is nil when no cleanup has been recorded.
	LastCleanup *storage.Cleanup `json:"last_cleanup,omitempty"`
}

// Deps holds the collaborators of a Service. History may be nil.
type Deps struct {
	Store   *artifact.Store
	Writer  *annotation.Writer
	Git     *vcs.Git
	P4      *vcs.P4
	History History
	Logger  *slog.Logger
}

// Service runs actions against a single artifact store.
type Service struct {
	store   *artifact.Store
	writer  *annotation.Writer
	git     *vcs.Git
	p4      *vcs.P4
	history History
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a Service wired to deps.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   deps.Store,
		writer:  deps.Writer,
		git:     deps.Git,
		p4:      deps.P4,
		history: deps.History,
		logger:  logger,
		now:     time.Now,
	}
}

// P4Annotate writes `p4 annotate` output for t into the p4annotate category.
func (s *Service) P4Annotate(ctx context.Context, t Target) Notice {
	if pe := checkTarget(t, "annotate", "annotate"); pe != nil {
		return refused(pe)
	}
	dir := filepath.Dir(t.Path)

	missing, err := s.p4.MissingSettings(ctx, dir)
	if err != nil {
		s.logger.Error("p4 workspace check failed", "path", t.Path, "error", err)
		return failure(s.p4.ExplainWorkspaceCheck(err), err)
	}
	if len(missing) > 0 {
		s.logger.Info("p4 workspace incomplete", "path", t.Path, "missing", missing)
		return refused(&PreconditionError{Message: p4WorkspaceHint})
	}

	out, err := s.p4.Annotate(ctx, t.Path)
	if err != nil {
		s.logger.Error("p4 annotate failed", "path", t.Path, "error", err)
		return failure(s.p4.Explain(err), err)
	}

	return s.persist(artifact.CategoryP4Annotate, t.Path, out, "Annotate file created: %s")
}

// GitBlame renders `git blame --line-porcelain` for t into the gitblame category.
func (s *Service) GitBlame(ctx context.Context, t Target) Notice {
	if pe := checkTarget(t, "blame", "git blame"); pe != nil {
		return refused(pe)
	}
	dir := filepath.Dir(t.Path)

	ok, err := s.git.IsRepository(ctx, dir)
	if err != nil {
		s.logger.Error("git repository check failed", "path", t.Path, "error", err)
		return failure(s.git.Explain(err), err)
	}
	if !ok {
		return refused(&PreconditionError{Message: "This file is not in a Git repository"})
	}

	ok, err = s.git.IsTracked(ctx, t.Path)
	if err != nil {
		s.logger.Error("git tracking check failed", "path", t.Path, "error", err)
		return failure(s.git.Explain(err), err)
	}
	if !ok {
		return refused(&PreconditionError{Message: "This file is not tracked by Git. Add it to the repository first."})
	}

	out, err := s.git.Blame(ctx, t.Path)
	if err != nil {
		s.logger.Error("git blame failed", "path", t.Path, "error", err)
		return failure(s.git.Explain(err), err)
	}

	records := blame.Parse(out)
	s.logger.Debug("blame parsed", "path", t.Path, "lines", len(records))
	return s.persist(artifact.CategoryGitBlame, t.Path, blame.Render(records), "Git blame file created: %s")
}

// Cleanup reclaims the whole artifact store. Without confirm it only
// reports what would be deleted.
func (s *Service) Cleanup(ctx context.Context, confirm bool) Notice {
	if err := ctx.Err(); err != nil {
		return failure("Failed to clean up temporary files: "+err.Error(), err)
	}

	size, err := s.store.ComputeSize()
	if err != nil {
		s.logger.Error("computing store size", "root", s.store.Root(), "error", err)
		return failure("Failed to clean up temporary files: "+err.Error(), err)
	}
	if size == 0 {
		return info("No temporary files to clean up.", "")
	}

	sizeStr := artifact.FormatSize(size)
	if !confirm {
		return Notice{
			Level:             LevelWarning,
			Message:           fmt.Sprintf("Delete all temporary files? (%s in %s)", sizeStr, s.store.Root()),
			NeedsConfirmation: true,
		}
	}

	removed, err := s.store.ReclaimAll()
	if err != nil {
		s.logger.Error("cleanup failed", "root", s.store.Root(), "removed", removed, "error", err)
		return failure(fmt.Sprintf("Failed to clean up temporary files: %v (%d item(s) removed)", err, removed), err)
	}

	if s.history != nil {
		if n, err := s.history.ClearArtifacts(); err != nil {
			s.logger.Warn("clearing artifact history", "error", err)
		} else {
			s.logger.Debug("artifact history cleared", "rows", n)
		}
		run := storage.Cleanup{ID: uuid.New().String(), Removed: removed, BytesFreed: size, CreatedAt: s.now().UTC()}
		if err := s.history.RecordCleanup(run); err != nil {
			s.logger.Warn("recording cleanup", "error", err)
		}
	}

	s.logger.Info("temporary files cleaned up", "root", s.store.Root(), "items", removed, "bytes", size)
	return info(fmt.Sprintf("Cleaned up %d item(s), freed %s", removed, sizeStr), "")
}

// Status reports the store root, its total size and per-category usage.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	cats, err := s.store.Categories()
	if err != nil {
		return Status{}, err
	}
	if cats == nil {
		cats = []artifact.CategoryUsage{}
	}
	var total int64
	for _, c := range cats {
		total += c.Bytes
	}
	st := Status{
		Root:       s.store.Root(),
		Bytes:      total,
		Size:       artifact.FormatSize(total),
		Categories: cats,
	}
	if s.history != nil {
		last, err := s.history.LastCleanup()
		switch {
		case err == nil:
			st.LastCleanup = &last
		case !errors.Is(err, storage.ErrNotFound):
			s.logger.Warn("reading last cleanup", "error", err)
		}
	}
	return st, nil
}

// History lists recorded artifacts, newest first. An empty category
// matches all. Rows whose file no longer exists are dropped first. It
// returns nil when no history is configured.
func (s *Service) History(ctx context.Context, category string, limit int) ([]storage.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	if n, err := s.history.PruneMissing(fileExists); err != nil {
		s.logger.Warn("pruning artifact history", "error", err)
	} else if n > 0 {
		s.logger.Debug("pruned stale history rows", "rows", n)
	}
	return s.history.ListArtifacts(category, limit)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkTarget(t Target, verb, command string) *PreconditionError {
	if t.Path == "" {
		return &PreconditionError{Message: "No active file to " + verb}
	}
	if t.Dirty {
		return &PreconditionError{Message: "Please save the file before running " + command, Warning: true}
	}
	return nil
}

// persist writes text as the artifact for source and records it in history.
func (s *Service) persist(category, source, text, created string) Notice {
	path, err := s.writer.Write(category, source, text)
	if err != nil {
		s.logger.Error("writing artifact", "category", category, "source", source, "error", err)
		return failure("Failed to write output file: "+err.Error(), err)
	}
	s.record(category, source, path, int64(len(text)))
	return info(fmt.Sprintf(created, path), path)
}

func (s *Service) record(category, source, path string, size int64) {
	if s.history == nil {
		return
	}
	entry := storage.Artifact{
		ID:           uuid.New().String(),
		Category:     category,
		SourcePath:   source,
		ArtifactPath: path,
		Bytes:        size,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.history.RecordArtifact(entry); err != nil {
		s.logger.Warn("recording artifact history", "path", path, "error", err)
	}
}
