package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/vscpp/internal/actions"
	"github.com/kalambet/vscpp/internal/artifact"
	"github.com/kalambet/vscpp/internal/config"
)

// --- annotate / blame ---

var annotateCmd = &cobra.Command{
	Use:   "annotate <file>",
	Short: "Write `p4 annotate -c -u` output for a file",
	Long: `Run p4 annotate on a file in a Perforce workspace and save the output as
<name>.blame in the p4annotate temp directory.

Examples:
  vscpp annotate src/main.c
  vscpp annotate --open src/main.c   # print only the artifact path`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargetAction(cmd, args[0], (*actions.Service).P4Annotate)
	},
}

var blameCmd = &cobra.Command{
	Use:   "blame <file>",
	Short: "Write a condensed git blame for a file",
	Long: `Run git blame on a tracked file and save one line per source line as
"<commit> <author> <code>" in the gitblame temp directory.

Examples:
  vscpp blame internal/server.go
  vscpp blame --dirty=true main.go   # editor hosts report unsaved buffers`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargetAction(cmd, args[0], (*actions.Service).GitBlame)
	},
}

func init() {
	for _, c := range []*cobra.Command{annotateCmd, blameCmd} {
		c.Flags().Bool("dirty", false, "the file has unsaved changes in the editor")
		c.Flags().Bool("open", false, "print only the artifact path on stdout")
	}
}

func runTargetAction(cmd *cobra.Command, file string, run func(*actions.Service, context.Context, actions.Target) actions.Notice) error {
	dirty, _ := cmd.Flags().GetBool("dirty")
	pathOnly, _ := cmd.Flags().GetBool("open")

	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", file, err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	n := run(a.actions, cmd.Context(), actions.Target{Path: abs, Dirty: dirty})
	if n.Failed() {
		return errors.New(n.Message)
	}

	if pathOnly {
		fmt.Fprintln(cmd.OutOrStdout(), n.Path)
		return nil
	}
	printNotice(n)
	return nil
}

// --- cleanup ---

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete all generated temp files",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		n := a.actions.Cleanup(cmd.Context(), confirm)
		if n.Failed() {
			return errors.New(n.Message)
		}
		if n.NeedsConfirmation {
			printWarning("%s Use --confirm to proceed.", n.Message)
			return nil
		}
		printNotice(n)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("confirm", false, "confirm deletion")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the temp directory and its size",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.actions.Status(cmd.Context())
		if err != nil {
			return err
		}

		printStatus("Root", "%s", st.Root)
		printStatus("Size", "%s", st.Size)
		for _, c := range st.Categories {
			printStatus("  "+c.Name, "%s in %d file(s)", artifact.FormatSize(c.Bytes), c.Files)
		}
		if st.LastCleanup != nil {
			printStatus("Last cleanup", "%s, freed %s", humanize.Time(st.LastCleanup.CreatedAt), artifact.FormatSize(st.LastCleanup.BytesFreed))
		}
		printStatus("Server", "%s", serverState(cmd.Context(), a.cfg))
		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently generated files",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		limit = clampLimit(limit)
		category, _ := cmd.Flags().GetString("category")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		rows, err := a.actions.History(cmd.Context(), category, limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No generated files recorded.")
			return nil
		}

		for _, r := range rows {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %-14s  %s\n",
				colorize(colorCyan, shortID(r.ID)),
				r.Category,
				humanize.Time(r.CreatedAt),
				r.ArtifactPath,
			)
		}
		return nil
	},
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// clampLimit applies the same bounds as GET /history: values <= 0 mean the
// default, larger ones are capped.
func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultHistoryLimit
	case n > maxHistoryLimit:
		return maxHistoryLimit
	}
	return n
}

func init() {
	historyCmd.Flags().Int("limit", defaultHistoryLimit, "maximum number of entries to list")
	historyCmd.Flags().String("category", "", "only list entries of this category (p4annotate, gitblame)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s (env %s)\n", k.Description, k.EnvVar)
			}
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the HTTP API bearer token, generating one if none exists",
	Long: `Print the bearer token editor extensions send to "vscpp serve". When no
token is configured, one is generated and stored in the macOS Keychain
(or the secrets file on other platforms), where serve picks it up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tok, err := config.EnsureServerToken(&cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolP("verbose", "v", false, "describe each key and its env var")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
