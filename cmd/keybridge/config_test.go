package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/keystore"
)

const testAuthKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
provisioner = "native"
scheme = "secp256k1"
kdf_profile = "light"

[store]
backend = "memory"

[auth]
key = "`+testAuthKey+`"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", cfg.Engine.Scheme)
	assert.Equal(t, "light", cfg.Engine.KDFProfile)
	assert.Equal(t, keystore.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown provisioner", "[engine]\nprovisioner = \"gpu\"\n", "unknown engine provisioner"},
		{"wasm without section", "[engine]\nprovisioner = \"wasm\"\n", "engine.wasm section"},
		{"unknown backend", "[store]\nbackend = \"redis\"\n", "unknown store backend"},
		{"short auth key", "[auth]\nkey = \"abcd\"\n", "32 bytes"},
		{"malformed toml", "[engine\n", "failed to read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthKey(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("KEYBRIDGE_AUTH_KEY", "")
	_, err := cfg.AuthKey()
	assert.ErrorContains(t, err, "not configured")

	cfg.Auth.Key = testAuthKey
	key, err := cfg.AuthKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	t.Setenv("KEYBRIDGE_AUTH_KEY", strings.Repeat("ff", 32))
	key, err = cfg.AuthKey()
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), key[0])

	t.Setenv("KEYBRIDGE_AUTH_KEY", "not-hex")
	_, err = cfg.AuthKey()
	assert.ErrorContains(t, err, "hex")
}

func TestProvisioner_Selection(t *testing.T) {
	c := DefaultConfig()
	_, err := c.provisioner()
	require.NoError(t, err)

	c.Engine.Scheme = "rsa"
	_, err = c.provisioner()
	assert.Error(t, err)

	c.Engine.Provisioner = "gpu"
	_, err = c.provisioner()
	assert.ErrorContains(t, err, "unknown engine provisioner")
}

func TestOpenFacade_BoltStore(t *testing.T) {
	log = newLogger(false)
	cfg = DefaultConfig()
	cfg.Engine.KDFProfile = "light"
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "keys.db")

	ctx := context.Background()
	f, err := openFacade(ctx)
	require.NoError(t, err)
	require.NoError(t, f.StoreDataForUser(ctx, "alice", "pub", "wrapped"))
	require.NoError(t, f.Close())

	f, err = openFacade(ctx)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.SetDataFromStorage(ctx, "alice"))
	assert.Equal(t, "pub", f.Session().PublicKey)
}
