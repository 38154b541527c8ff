package vcs

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
)

var gitRules = []rule{
	toolMissing("Git command not found. Make sure Git is installed and in your PATH"),
	contains("no such path", "File not tracked in Git repository"),
}

// Git wraps the git client.
type Git struct {
	runner Runner
	binary string
}

// NewGit returns a Git using binary (default "git").
func NewGit(runner Runner, binary string) *Git {
	if binary == "" {
		binary = "git"
	}
	return &Git{runner: runner, binary: binary}
}

// IsRepository reports whether dir is inside a git work tree. A non-zero
// exit means "no"; failing to run git at all is returned as an error.
func (g *Git) IsRepository(ctx context.Context, dir string) (bool, error) {
	_, err := g.runner.Run(ctx, dir, g.binary, "rev-parse", "--git-dir")
	return exitStatus(err)
}

// IsTracked reports whether path is known to the index.
func (g *Git) IsTracked(ctx context.Context, path string) (bool, error) {
	_, err := g.runner.Run(ctx, filepath.Dir(path), g.binary, "ls-files", "--error-unmatch", path)
	return exitStatus(err)
}

// Blame returns the raw line-porcelain blame of path.
func (g *Git) Blame(ctx context.Context, path string) (string, error) {
	return g.runner.Run(ctx, filepath.Dir(path), g.binary, "blame", "--line-porcelain", path)
}

// Explain turns a failed blame into a user-facing message.
func (g *Git) Explain(err error) string {
	return explain(gitRules, "git blame failed", err)
}

func exitStatus(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}
