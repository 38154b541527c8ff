package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// warnOut receives [WARN] lines for config values that are skipped.
var warnOut io.Writer = os.Stderr

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

// keySpec binds a dotted config key to its env var and Config field.
// Durations are stored as strings ("90s") and checked with time.ParseDuration.
type keySpec struct {
	key      string
	typ      keyType
	env      string
	secret   bool
	check    func(v any) error
	apply    func(cfg *Config, v any)
	extract  func(cfg Config) any
	describe string
}

var specs = []keySpec{
	{
		key: "store.temp_dir", typ: kString, env: "VSCPP_STORE_TEMP_DIR",
		describe: "parent of the artifact root (default: TMPDIR, TEMP, TMP, /tmp)",
		apply:    func(cfg *Config, v any) { cfg.Store.TempDir = v.(string) },
		extract:  func(cfg Config) any { return cfg.Store.TempDir },
	},
	{
		key: "store.root_name", typ: kString, env: "VSCPP_STORE_ROOT_NAME",
		describe: "directory name of the artifact root",
		check:    checkSimpleName,
		apply:    func(cfg *Config, v any) { cfg.Store.RootName = v.(string) },
		extract:  func(cfg Config) any { return cfg.Store.RootName },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VSCPP_STORAGE_DATA_DIR",
		describe: "directory of the history database",
		apply:    func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract:  func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "tools.git", typ: kString, env: "VSCPP_TOOLS_GIT",
		describe: "git executable",
		apply:    func(cfg *Config, v any) { cfg.Tools.Git = v.(string) },
		extract:  func(cfg Config) any { return cfg.Tools.Git },
	},
	{
		key: "tools.p4", typ: kString, env: "VSCPP_TOOLS_P4",
		describe: "p4 executable",
		apply:    func(cfg *Config, v any) { cfg.Tools.P4 = v.(string) },
		extract:  func(cfg Config) any { return cfg.Tools.P4 },
	},
	{
		key: "tools.timeout", typ: kDuration, env: "VSCPP_TOOLS_TIMEOUT",
		describe: "limit for one git/p4 run, empty for none",
		apply:    func(cfg *Config, v any) { cfg.Tools.Timeout = v.(string) },
		extract:  func(cfg Config) any { return cfg.Tools.Timeout },
	},
	{
		key: "server.port", typ: kInt, env: "VSCPP_SERVER_PORT",
		describe: "port of `vscpp serve` on 127.0.0.1",
		check:    checkPort,
		apply:    func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract:  func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "VSCPP_SERVER_TOKEN", secret: true,
		describe: "bearer token for the HTTP API (serve generates one into the secret store when unset)",
		apply:    func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract:  func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "log.level", typ: kString, env: "VSCPP_LOG_LEVEL",
		describe: "debug, info, warn or error",
		apply:    func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract:  func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts raw text into the spec's value type and runs its check.
func (s keySpec) parse(raw string) (any, error) {
	var v any
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		v = i
	case kDuration:
		if raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid duration value for %s: %w", s.key, err)
			}
			if d < 0 {
				return nil, fmt.Errorf("invalid duration value for %s: %s is negative", s.key, raw)
			}
		}
		v = raw
	default:
		v = raw
	}
	if s.check != nil {
		if err := s.check(v); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", s.key, err)
		}
	}
	return v, nil
}

func checkPort(v any) error {
	if p := v.(int); p <= 0 || p > 65535 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}

func checkSimpleName(v any) error {
	name := v.(string)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q is not a simple directory name", name)
	}
	return nil
}

// applyBackend copies stored values into cfg. A value that cannot be read or
// fails its check is reported and the default stays.
func applyBackend(cfg *Config, b ConfigBackend) {
	for _, s := range specs {
		var (
			v   any
			ok  bool
			err error
		)
		switch s.typ {
		case kInt:
			var i int
			i, ok, err = b.GetInt(s.key)
			if err == nil && ok && s.check != nil {
				err = s.check(i)
			}
			v = i
		default:
			var raw string
			raw, ok, err = b.GetString(s.key)
			if err == nil && ok {
				v, err = s.parse(raw)
			}
		}
		if err != nil {
			fmt.Fprintf(warnOut, "[WARN] ignoring config value %s: %v\n", s.key, err)
			continue
		}
		if ok {
			s.apply(cfg, v)
		}
	}
}

// applyEnvOverrides applies every non-empty VSCPP_* variable. Values that do
// not parse are reported on stderr and leave the current value in place.
func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(warnOut, "[WARN] ignoring env var %s=%q: %v\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
