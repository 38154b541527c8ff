//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.vscpp.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vscpp-data"
	}
	return filepath.Join(home, "Library", "Application Support", "vscpp")
}

// darwinBackend stores settings in UserDefaults through the `defaults` CLI.
type darwinBackend struct {
	domain   string
	defaults func(args ...string) ([]byte, error)
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain, defaults: runDefaults}
}

func runDefaults(args ...string) ([]byte, error) {
	return exec.Command("defaults", args...).CombinedOutput()
}

// notSet reports the exit status `defaults` uses for a missing key.
func notSet(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func (b *darwinBackend) GetString(key string) (string, bool, error) {
	out, err := b.defaults("read", b.domain, key)
	s := strings.TrimSpace(string(out))
	if err != nil {
		if notSet(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default %s: %w, output: %s", key, err, s)
	}
	return s, true, nil
}

func (b *darwinBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *darwinBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *darwinBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *darwinBackend) write(key, typ, val string) error {
	if out, err := b.defaults("write", b.domain, key, typ, val); err != nil {
		return fmt.Errorf("writing default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Delete removes key. Deleting an unset key is not an error.
func (b *darwinBackend) Delete(key string) error {
	out, err := b.defaults("delete", b.domain, key)
	if err != nil && !notSet(err) {
		return fmt.Errorf("deleting default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}
