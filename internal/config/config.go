package config

import (
	"fmt"
	"time"
)

type Config struct {
	Store   StoreConfig
	Storage StorageConfig
	Tools   ToolsConfig
	Server  ServerConfig
	Log     LogConfig
}

// StoreConfig locates the artifact scratch directory. An empty TempDir
// means TMPDIR, TEMP, TMP, then /tmp.
type StoreConfig struct {
	TempDir  string
	RootName string
}

// StorageConfig locates the history database. It must live outside the
// artifact store so cleanup does not delete it.
type StorageConfig struct {
	DataDir string
}

type ToolsConfig struct {
	Git     string
	P4      string
	Timeout string
}

// ServerConfig configures `vscpp serve`. When Token is empty, serve
// generates one with EnsureServerToken before listening.
type ServerConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			RootName: "vsc-productivity-pack",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Tools: ToolsConfig{
			Git: "git",
			P4:  "p4",
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.vscpp.app) and the
// server token falls back to macOS Keychain (service: vscpp, account:
// server_token).
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/vscpp/config.json
// and the token falls back to $XDG_DATA_HOME/vscpp/secrets.json.
//
// Environment variables (VSCPP_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), systemKeychain{})
}

// loadWith layers defaults, backend values, env overrides and the secret
// store. Backend and env values that do not parse or validate are reported
// with [WARN] and leave the previous value in place.
func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	applyBackend(&cfg, b)
	applyEnvOverrides(&cfg)

	if cfg.Server.Token == "" {
		if tok, err := kc.Get(tokenService, tokenAccount); err == nil && tok != "" {
			cfg.Server.Token = tok
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if err := checkSimpleName(c.Store.RootName); err != nil {
		return fmt.Errorf("invalid config: store.root_name: %w", err)
	}
	if _, err := c.ToolTimeout(); err != nil {
		return err
	}
	if err := checkPort(c.Server.Port); err != nil {
		return fmt.Errorf("invalid config: server.port: %w", err)
	}
	return nil
}

// ToolTimeout parses Tools.Timeout. Empty means no timeout.
func (c Config) ToolTimeout() (time.Duration, error) {
	if c.Tools.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Tools.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid config: tools.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid config: tools.timeout must not be negative")
	}
	return d, nil
}
