package vcs

import (
	"context"
	"path/filepath"
	"strings"
)

// RequiredP4Settings must all be reported by `p4 set` for a usable workspace.
var RequiredP4Settings = []string{"P4CLIENT", "P4PORT", "P4USER"}

var p4Rules = []rule{
	contains("not opened on this client", "File is not in Perforce depot"),
	toolMissing("Perforce (p4) command not found. Make sure Perforce is installed and in your PATH"),
}

// P4 wraps the Perforce client.
type P4 struct {
	runner Runner
	binary string
}

// NewP4 returns a P4 using binary (default "p4").
func NewP4(runner Runner, binary string) *P4 {
	if binary == "" {
		binary = "p4"
	}
	return &P4{runner: runner, binary: binary}
}

// MissingSettings runs `p4 set` in dir and returns which of
// RequiredP4Settings are not configured.
func (p *P4) MissingSettings(ctx context.Context, dir string) ([]string, error) {
	out, err := p.runner.Run(ctx, dir, p.binary, "set")
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		key, _, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok {
			set[key] = true
		}
	}

	var missing []string
	for _, key := range RequiredP4Settings {
		if !set[key] {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

// Annotate returns `p4 annotate -c -u` output for path, already formatted.
func (p *P4) Annotate(ctx context.Context, path string) (string, error) {
	return p.runner.Run(ctx, filepath.Dir(path), p.binary, "annotate", "-c", "-u", path)
}

// Explain turns a failed annotate into a user-facing message.
func (p *P4) Explain(err error) string {
	return explain(p4Rules, "p4 annotate failed", err)
}

// ExplainWorkspaceCheck turns a failed `p4 set` into a user-facing message.
func (p *P4) ExplainWorkspaceCheck(err error) string {
	return explain(p4Rules[1:], "Failed to check Perforce configuration", err)
}
