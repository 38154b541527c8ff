//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vscpp", "config.json")
	b := &fileBackend{path: path, data: make(map[string]any)}

	if err := b.SetString("tools.git", "/opt/git"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 4321); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	reloaded := &fileBackend{path: path, data: make(map[string]any)}
	reloaded.load()

	if v, ok, err := reloaded.GetString("tools.git"); !ok || err != nil || v != "/opt/git" {
		t.Errorf("GetString = %q, %v, %v", v, ok, err)
	}
	if v, ok, err := reloaded.GetInt("server.port"); !ok || err != nil || v != 4321 {
		t.Errorf("GetInt = %d, %v, %v", v, ok, err)
	}

	if err := reloaded.Delete("tools.git"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := reloaded.GetString("tools.git"); ok {
		t.Error("key still present after Delete")
	}
}

func TestFileBackend_LoadsIntoConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"store.root_name": "custom-root", "server.port": 4555, "tools.timeout": "2m"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()

	cfg, err := loadWith(b, systemKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Store.RootName != "custom-root" {
		t.Errorf("Store.RootName = %q", cfg.Store.RootName)
	}
	if cfg.Server.Port != 4555 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Tools.Timeout != "2m" {
		t.Errorf("Tools.Timeout = %q", cfg.Tools.Timeout)
	}
}

func TestFileBackend_InvalidInt(t *testing.T) {
	b := &fileBackend{data: map[string]any{"server.port": 1.5}}
	if _, _, err := b.GetInt("server.port"); err == nil {
		t.Error("expected error for fractional port")
	}
}

func TestDefaultDataDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	if got := defaultDataDir(); got != filepath.Join("/xdg/data", "vscpp") {
		t.Errorf("defaultDataDir = %q", got)
	}
}

func TestSecretsFile(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	if _, err := (systemKeychain{}).Get("vscpp", "server_token"); err == nil {
		t.Fatal("expected error without a secrets file")
	}

	dir := filepath.Join(dataHome, "vscpp")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := `{"vscpp": {"server_token": " s3cret\n"}}`
	if err := os.WriteFile(filepath.Join(dir, "secrets.json"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := (systemKeychain{}).Get("vscpp", "server_token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get = %q, want trimmed token", got)
	}
	if _, err := (systemKeychain{}).Get("vscpp", "other"); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestFileBackend_SaveLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vscpp")
	b := &fileBackend{path: filepath.Join(dir, "config.json"), data: make(map[string]any)}

	if err := b.Delete("tools.git"); err != nil {
		t.Fatalf("Delete of unset key: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("Delete of unset key created %s", dir)
	}

	for i := 0; i < 3; i++ {
		if err := b.SetInt("server.port", 4000+i); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.json" {
		t.Errorf("config dir holds %v, want only config.json", entries)
	}
}

func TestSecretsFile_Set(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	kc := systemKeychain{}
	if err := kc.Set("vscpp", "server_token", "first"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kc.Set("vscpp", "other", "kept"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kc.Set("vscpp", "server_token", "second"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got, err := kc.Get("vscpp", "server_token"); err != nil || got != "second" {
		t.Errorf("Get = %q, %v; want second", got, err)
	}
	if got, err := kc.Get("vscpp", "other"); err != nil || got != "kept" {
		t.Errorf("Get other = %q, %v; want kept", got, err)
	}
	info, err := os.Stat(filepath.Join(dataHome, "vscpp", "secrets.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}
}
