package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/vscpp/internal/config"
	"github.com/kalambet/vscpp/internal/vcs"
)

const porcelain = "1111111111111111111111111111111111111111 1 1 1\n" +
	"author Bob\n" +
	"filename f.go\n" +
	"\tfunc f() {}\n"

// scriptRunner answers git/p4 calls by the first argument.
type scriptRunner struct {
	outputs map[string]string
	calls   []string
}

func (r *scriptRunner) Run(_ context.Context, _, name string, args ...string) (string, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	if len(args) == 0 {
		return "", nil
	}
	return r.outputs[args[0]], nil
}

type cliEnv struct {
	tempDir string
	runner  *scriptRunner
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{
		tempDir: t.TempDir(),
		runner: &scriptRunner{outputs: map[string]string{
			"blame":    porcelain,
			"set":      "P4CLIENT=c\nP4PORT=p:1666\nP4USER=u\n",
			"annotate": "7: func f() {}\n",
		}},
	}
	t.Setenv("VSCPP_STORE_TEMP_DIR", env.tempDir)
	t.Setenv("VSCPP_STORE_ROOT_NAME", "")
	t.Setenv("VSCPP_STORAGE_DATA_DIR", t.TempDir())
	t.Setenv("VSCPP_SERVER_PORT", "1")
	t.Setenv("VSCPP_TOOLS_TIMEOUT", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("VSCPP_LOG_LEVEL", "error")
	t.Setenv("VSCPP_SERVER_TOKEN", "")

	old := newRunner
	newRunner = func(config.Config) (vcs.Runner, error) { return env.runner, nil }
	t.Cleanup(func() { newRunner = old })
	return env
}

func (e *cliEnv) root() string {
	return filepath.Join(e.tempDir, "vsc-productivity-pack")
}

// execute runs the root command and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestBlameCommand_Open(t *testing.T) {
	env := setupCLI(t)
	src := filepath.Join(t.TempDir(), "f.go")

	out, err := execute(t, "blame", "--open", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(env.root(), "gitblame", "f.go.blame")
	if strings.TrimSpace(out) != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "11111111 Bob                  func f() {}" {
		t.Errorf("artifact = %q", data)
	}
}

func TestBlameCommand_Dirty(t *testing.T) {
	env := setupCLI(t)

	_, err := execute(t, "blame", "--dirty", "f.go")
	if err == nil || err.Error() != "Please save the file before running git blame" {
		t.Fatalf("err = %v", err)
	}
	if len(env.runner.calls) != 0 {
		t.Errorf("no tool should run for a dirty buffer, got %v", env.runner.calls)
	}
}

func TestAnnotateCommand(t *testing.T) {
	env := setupCLI(t)
	src := filepath.Join(t.TempDir(), "m.c")

	if _, err := execute(t, "annotate", src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(env.root(), "p4annotate", "m.c.blame"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "7: func f() {}\n" {
		t.Errorf("artifact = %q", data)
	}
	if !strings.HasPrefix(env.runner.calls[0], "p4 set") {
		t.Errorf("first call = %q, want the workspace check", env.runner.calls[0])
	}
}

func TestAnnotateCommand_NoWorkspace(t *testing.T) {
	env := setupCLI(t)
	env.runner.outputs["set"] = ""

	_, err := execute(t, "annotate", "m.c")
	if err == nil || !strings.Contains(err.Error(), "not in a Perforce workspace") {
		t.Fatalf("err = %v", err)
	}
}

func TestCleanupCommand(t *testing.T) {
	env := setupCLI(t)
	src := filepath.Join(t.TempDir(), "f.go")
	if _, err := execute(t, "blame", src); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "cleanup"); err != nil {
		t.Fatalf("cleanup without confirm: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.root(), "gitblame")); err != nil {
		t.Fatalf("cleanup without --confirm must not delete: %v", err)
	}

	if _, err := execute(t, "cleanup", "--confirm"); err != nil {
		t.Fatalf("cleanup --confirm: %v", err)
	}
	entries, err := os.ReadDir(env.root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after cleanup", len(entries))
	}
}

func TestHistoryCommand(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })
	setupCLI(t)

	out, err := execute(t, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No generated files recorded.") {
		t.Errorf("empty history output = %q", out)
	}

	src := filepath.Join(t.TempDir(), "f.go")
	if _, err := execute(t, "blame", src); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "history", "--limit", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gitblame") || !strings.Contains(out, "f.go.blame") {
		t.Errorf("history output = %q", out)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 20},
		{0, 20},
		{1, 1},
		{50, 50},
		{200, 200},
		{201, 200},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHistoryCommand_NonPositiveLimit(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })
	setupCLI(t)

	src := filepath.Join(t.TempDir(), "f.go")
	if _, err := execute(t, "blame", src); err != nil {
		t.Fatal(err)
	}
	for _, limit := range []string{"0", "-1"} {
		out, err := execute(t, "history", "--limit", limit)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "f.go.blame") {
			t.Errorf("--limit %s output = %q, want the default page", limit, out)
		}
	}
}

func TestConfigShow(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })
	setupCLI(t)

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range config.ValidKeys() {
		if !strings.Contains(out, key) {
			t.Errorf("config show output lacks %q", key)
		}
	}
	if !strings.Contains(out, "server.port = 1") {
		t.Errorf("env override not shown: %q", out)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorRed, "error")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	result = colorize(colorRed, "error")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		id, want string
	}{
		{"0123456789abcdef", "01234567"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.id); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestConfigSetUnset(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("config set writes to UserDefaults on macOS")
	}
	noColor = true
	t.Cleanup(func() { noColor = false })
	setupCLI(t)

	if _, err := execute(t, "config", "set", "tools.p4", "/opt/p4"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "tools.p4 = /opt/p4") {
		t.Errorf("after set: %q", out)
	}

	if _, err := execute(t, "config", "unset", "tools.p4"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	out, err = execute(t, "config", "show", "-v")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "tools.p4 = p4") || !strings.Contains(out, "VSCPP_TOOLS_P4") {
		t.Errorf("after unset: %q", out)
	}

	if _, err := execute(t, "config", "set", "server.port", "99999"); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestConfigSet_RefusesSecret(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("config set writes to UserDefaults on macOS")
	}
	setupCLI(t)

	out, err := execute(t, "config", "set", "server.token", "hunter2")
	if err == nil {
		t.Fatal("expected error for secret key")
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret echoed: %q", out)
	}
	data, _ := os.ReadFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "vscpp", "config.json"))
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("secret written to config file: %s", data)
	}
}

func TestTokenCommand(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("token is stored in the macOS Keychain")
	}
	setupCLI(t)

	first, err := execute(t, "token")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	first = strings.TrimSpace(first)
	if len(first) != 64 {
		t.Fatalf("token = %q, want 64 hex chars", first)
	}

	second, err := execute(t, "token")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(second) != first {
		t.Errorf("second token = %q, want the stored %q", second, first)
	}

	t.Setenv("VSCPP_SERVER_TOKEN", "from-env")
	out, err := execute(t, "token")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "from-env" {
		t.Errorf("token = %q, env should win", out)
	}
}
