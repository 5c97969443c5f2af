package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sonr-io/keybridge/engine/wasmhost"
	"github.com/sonr-io/keybridge/keystore"
)

// Provisioner names accepted in [engine].provisioner.
const (
	ProvisionerNative = "native"
	ProvisionerWASM   = "wasm"
	ProvisionerBridge = "bridge"
)

// Config is the CLI configuration file.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Auth   AuthConfig   `toml:"auth"`
}

// EngineConfig selects the background context.
type EngineConfig struct {
	Provisioner string           `toml:"provisioner"`
	Scheme      string           `toml:"scheme"`
	KDFProfile  string           `toml:"kdf_profile"`
	Timeout     time.Duration    `toml:"timeout"`
	BridgeURL   string           `toml:"bridge_url"`
	BridgeToken string           `toml:"bridge_token"`
	WASM        *wasmhost.Config `toml:"wasm"`
}

// StoreConfig selects the key store backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// AuthConfig holds the hex encoded AES-256 key that protects sharing
// passwords.
type AuthConfig struct {
	Key string `toml:"key"`
}

func defaultHome() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".keybridge")
	}
	return ".keybridge"
}

// DefaultConfigPath is used when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(defaultHome(), "config.toml")
}

// DefaultConfig runs the native engine on a bolt key store.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Provisioner: ProvisionerNative,
			Scheme:      "x25519",
			KDFProfile:  "default",
			Timeout:     30 * time.Second,
			BridgeURL:   "ws://localhost:8090/engine",
		},
		Store: StoreConfig{
			Backend: keystore.BackendBolt,
			Path:    filepath.Join(defaultHome(), "keys.db"),
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the provisioner and store selections.
func (c *Config) Validate() error {
	switch c.Engine.Provisioner {
	case ProvisionerNative, ProvisionerBridge:
	case ProvisionerWASM:
		if c.Engine.WASM == nil {
			return fmt.Errorf("engine.wasm section is required for the wasm provisioner")
		}
	default:
		return fmt.Errorf("unknown engine provisioner %q", c.Engine.Provisioner)
	}
	switch c.Store.Backend {
	case keystore.BackendMemory, keystore.BackendBolt, keystore.BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Auth.Key != "" {
		if _, err := c.AuthKey(); err != nil {
			return err
		}
	}
	return nil
}

// AuthKey decodes the auth key. KEYBRIDGE_AUTH_KEY overrides the file.
func (c *Config) AuthKey() ([]byte, error) {
	raw := c.Auth.Key
	if v := os.Getenv("KEYBRIDGE_AUTH_KEY"); v != "" {
		raw = v
	}
	if raw == "" {
		return nil, fmt.Errorf("auth key is not configured (set [auth] key or KEYBRIDGE_AUTH_KEY)")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("auth key must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("auth key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ensureParent creates the directory holding path.
func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
