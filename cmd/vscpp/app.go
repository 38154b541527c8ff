package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kalambet/vscpp/internal/actions"
	"github.com/kalambet/vscpp/internal/annotation"
	"github.com/kalambet/vscpp/internal/artifact"
	"github.com/kalambet/vscpp/internal/config"
	"github.com/kalambet/vscpp/internal/storage"
	"github.com/kalambet/vscpp/internal/vcs"
)

// app is the set of components one command invocation works with.
type app struct {
	cfg     config.Config
	store   *artifact.Store
	history *storage.Store
	actions *actions.Service
}

// newRunner builds the process runner for git and p4. Tests replace it.
var newRunner = func(cfg config.Config) (vcs.Runner, error) {
	timeout, err := cfg.ToolTimeout()
	if err != nil {
		return nil, err
	}
	return vcs.ExecRunner{Timeout: timeout, Logger: slog.Default()}, nil
}

// openApp loads config, sets up logging and wires the store, history
// database and actions. The caller must call close.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	runner, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}

	store := artifact.New(artifact.Options{
		TempDir:  cfg.Store.TempDir,
		RootName: cfg.Store.RootName,
		Logger:   slog.Default(),
	})

	deps := actions.Deps{
		Store:  store,
		Writer: annotation.NewWriter(store),
		Git:    vcs.NewGit(runner, cfg.Tools.Git),
		P4:     vcs.NewP4(runner, cfg.Tools.P4),
		Logger: slog.Default(),
	}

	a := &app{cfg: cfg, store: store}

	history, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		// History is informational; actions still work without it.
		slog.Warn("artifact history unavailable", "data_dir", cfg.Storage.DataDir, "error", err)
	} else {
		a.history = history
		deps.History = history
	}

	a.actions = actions.New(deps)
	return a, nil
}

func (a *app) close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}
