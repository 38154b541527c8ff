package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	tokenService = "vscpp"
	tokenAccount = "server_token"
)

// keychain abstracts the platform secret store for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// systemKeychain is macOS Keychain via the security CLI, or the secrets
// file on other platforms.
type systemKeychain struct{}

func (systemKeychain) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (systemKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// EnsureServerToken makes sure cfg carries an API bearer token. When none is
// configured it generates one and stores it in the platform secret store,
// where later Loads (and editor hosts) find it.
func EnsureServerToken(cfg *Config) (string, error) {
	return ensureServerTokenWith(cfg, systemKeychain{})
}

func ensureServerTokenWith(cfg *Config, kc keychain) (string, error) {
	if cfg.Server.Token != "" {
		return cfg.Server.Token, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := kc.Set(tokenService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	cfg.Server.Token = tok
	return tok, nil
}
