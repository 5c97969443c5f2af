package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/facade"
)

func run(t *testing.T, config string, args ...string) error {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	rootCmd.SetArgs(append([]string{"--config", config}, args...))
	return rootCmd.Execute()
}

func TestKeysCommands(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, `
[engine]
kdf_profile = "light"

[store]
backend = "sqlite"
path = "`+filepath.ToSlash(filepath.Join(dir, "keys.sqlite"))+`"
`)

	require.NoError(t, run(t, config, "keys", "create", "--user", "alice", "--password", "hunter2"))
	require.NoError(t, run(t, config, "keys", "show", "alice"))

	err := run(t, config, "keys", "select", "bob")
	var missing *facade.UserDoesNotExistLocallyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "bob", missing.UserID)

	require.NoError(t, run(t, config, "keys", "clear"))
	assert.ErrorIs(t, run(t, config, "keys", "show", "alice"), facade.ErrUserDoesNotExistLocally)
}

func TestKeysCreate_RequiresFlags(t *testing.T) {
	config := writeConfig(t, "[store]\nbackend = \"memory\"\n")
	keysUser, keysPassword = "", ""
	assert.ErrorContains(t, run(t, config, "keys", "create"), "--user and --password")
}

func TestShareCreate_RequiresAuthKey(t *testing.T) {
	config := writeConfig(t, "[store]\nbackend = \"memory\"\n")
	t.Setenv("KEYBRIDGE_AUTH_KEY", "")
	assert.ErrorContains(t, run(t, config, "share", "create", "--out", filepath.Join(t.TempDir(), "env.json")), "auth key")
}

func TestShareCommands(t *testing.T) {
	config := writeConfig(t, `
[engine]
kdf_profile = "light"

[store]
backend = "memory"

[auth]
key = "`+testAuthKey+`"
`)
	dir := t.TempDir()
	created := filepath.Join(dir, "created.json")
	rotated := filepath.Join(dir, "rotated.json")

	require.NoError(t, run(t, config, "share", "create", "--out", created))
	env, err := readEnvelopeFile(created)
	require.NoError(t, err)
	assert.NotEmpty(t, env.PublicKey)

	require.NoError(t, run(t, config, "share", "rotate", "--in", created, "--out", rotated))
	next, err := readEnvelopeFile(rotated)
	require.NoError(t, err)
	assert.Equal(t, env.PublicKey, next.PublicKey)
	assert.Equal(t, env.Salt, next.Salt)
	assert.NotEqual(t, env.Password, next.Password)

	sharePassword = ""
	require.NoError(t, run(t, config, "share", "unwrap", "--in", rotated))
	sharePassword = "wrong"
	assert.Error(t, run(t, config, "share", "unwrap", "--in", rotated))
	sharePassword = ""
}

func TestToken_RequiresSecret(t *testing.T) {
	config := writeConfig(t, "[store]\nbackend = \"memory\"\n")
	t.Setenv("KEYBRIDGE_JWT_SECRET", "")
	assert.ErrorContains(t, run(t, config, "token"), "KEYBRIDGE_JWT_SECRET")

	t.Setenv("KEYBRIDGE_JWT_SECRET", "cli-secret")
	assert.NoError(t, run(t, config, "token", "--client", "ci"))
}
