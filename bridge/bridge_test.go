package bridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/bridge/handlers"
	"github.com/sonr-io/keybridge/engine/native"
	"github.com/sonr-io/keybridge/facade"
	"github.com/sonr-io/keybridge/rpc"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig(env(nil), zerolog.Nop())

	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, native.SchemeX25519, cfg.EngineScheme)
	assert.Nil(t, cfg.JWTSecret)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultHealthInterval, cfg.HealthInterval)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	cfg := LoadConfig(env(map[string]string{
		"KEYBRIDGE_HTTP_PORT":        "9100",
		"KEYBRIDGE_ENGINE_SCHEME":    "secp256k1",
		"KEYBRIDGE_KDF_PROFILE":      "light",
		"KEYBRIDGE_JWT_SECRET":       "s3cret",
		"KEYBRIDGE_ALLOWED_ORIGINS":  "https://a.example, https://b.example,",
		"KEYBRIDGE_SHUTDOWN_TIMEOUT": "5s",
	}), zerolog.Nop())

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, native.SchemeSecp256k1, cfg.EngineScheme)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Len(t, cfg.EngineOptions(), 2)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	cfg := LoadConfig(env(map[string]string{
		"KEYBRIDGE_HTTP_PORT":        "http",
		"KEYBRIDGE_ENGINE_SCHEME":    "rsa",
		"KEYBRIDGE_SHUTDOWN_TIMEOUT": "-1s",
	}), zerolog.Nop())

	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, native.SchemeX25519, cfg.EngineScheme)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func startService(t *testing.T, vars map[string]string) (*Service, string) {
	t.Helper()
	vars["KEYBRIDGE_KDF_PROFILE"] = "light"
	svc, err := NewService(LoadConfig(env(vars), zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	ts := httptest.NewServer(svc.Server().Echo())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Server().Shutdown(ctx)
		ts.Close()
	})
	return svc, "ws" + strings.TrimPrefix(ts.URL, "http") + "/engine"
}

func openRemote(t *testing.T, p *Provisioner) *facade.Facade {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f, err := facade.Open(ctx, facade.Options{Provisioner: p, Factory: rpc.NewFactory()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFacadeOverBridge(t *testing.T) {
	_, url := startService(t, map[string]string{})
	f := openRemote(t, &Provisioner{URL: url})
	ctx := context.Background()

	salt, err := f.GenerateUserSalt(ctx)
	require.NoError(t, err)
	key, err := f.GeneratePasswordSecretBoxKey(ctx, "correct horse", salt)
	require.NoError(t, err)
	kp, err := f.GenerateAsymmetricKeys(ctx)
	require.NoError(t, err)

	wrapped, err := f.EncryptPrivateKey(ctx, key, kp.PrivateKey)
	require.NoError(t, err)
	got, err := f.DecryptPrivateKey(ctx, key, wrapped)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey, got)

	_, err = f.DecryptPrivateKey(ctx, key, "mAAAA")
	var engErr *rpc.EngineError
	assert.ErrorAs(t, err, &engErr)
}

func TestFacadeOverBridge_RequiresToken(t *testing.T) {
	secret := "bridge-test-secret"
	_, url := startService(t, map[string]string{"KEYBRIDGE_JWT_SECRET": secret})

	_, err := facade.Open(context.Background(), facade.Options{Provisioner: &Provisioner{URL: url}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	token, err := handlers.IssueToken([]byte(secret), "test-client", time.Minute)
	require.NoError(t, err)
	f := openRemote(t, &Provisioner{URL: url, Token: token})

	h, err := f.GenerateUsernameHash(context.Background(), "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, h)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := LoadConfig(env(nil), zerolog.Nop())
	cfg.HTTPPort = 0
	svc, err := NewService(cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}
