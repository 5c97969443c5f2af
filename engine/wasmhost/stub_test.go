package wasmhost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/crypto/wasm"
	"github.com/sonr-io/keybridge/engine"
	"github.com/sonr-io/keybridge/facade"
	"github.com/sonr-io/keybridge/rpc"
)

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func section(id byte, body []byte) []byte {
	return append(append([]byte{id}, uleb(len(body))...), body...)
}

// stubModule builds a wasm module exporting every engine function as one
// () -> i32 function returning exitCode without producing output.
func stubModule(exitCode byte) []byte {
	mod := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(1, []byte{0x01, 0x60, 0x00, 0x01, 0x7f})...)
	mod = append(mod, section(3, []byte{0x01, 0x00})...)

	exports := uleb(len(engine.Functions))
	for _, fn := range engine.Functions {
		exports = append(exports, uleb(len(fn))...)
		exports = append(exports, fn...)
		exports = append(exports, 0x00, 0x00)
	}
	mod = append(mod, section(7, exports)...)

	body := []byte{0x00, 0x41, exitCode, 0x0b}
	mod = append(mod, section(10, append([]byte{0x01}, append(uleb(len(body)), body...)...))...)
	return mod
}

func stubConfig(base string, module []byte) *Config {
	cfg := DefaultConfig()
	cfg.BundleURL = base + "/keybridge-engine/0.2.0/engine.wasm"
	cfg.SHA256 = wasm.ComputeHash(module)
	return cfg
}

func stubServer(t *testing.T, module []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(module)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHost_InvokeCallsNamedExport(t *testing.T) {
	ctx := context.Background()
	module := stubModule(0)
	h, err := Load(ctx, stubConfig("https://cdn.example", module), module, zerolog.Nop())
	require.NoError(t, err)
	defer h.Close(ctx)

	out, err := h.Invoke(ctx, engine.GenerateUsernameHashRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Empty(t, out)

	state := h.State()
	assert.True(t, state.IsHealthy)
	assert.Zero(t, state.ErrorCount)
}

func TestHost_GuestErrorsTriggerRecovery(t *testing.T) {
	ctx := context.Background()
	module := stubModule(1)
	h, err := Load(ctx, stubConfig("https://cdn.example", module), module, zerolog.Nop())
	require.NoError(t, err)
	defer h.Close(ctx)

	created := h.State().CreatedAt
	for i := 0; i < maxErrors; i++ {
		_, err := h.Invoke(ctx, engine.GenerateUserSaltRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), engine.FnGenerateUserSalt)
	}
	require.False(t, h.State().IsHealthy)

	_, err = h.Invoke(ctx, engine.GenerateUserSaltRequest{})
	require.Error(t, err)
	state := h.State()
	assert.True(t, state.IsHealthy, "plugin is rebuilt before the next call")
	assert.Equal(t, 1, state.ErrorCount)
	assert.False(t, state.CreatedAt.Before(created))
}

func TestHost_InvokeAfterClose(t *testing.T) {
	ctx := context.Background()
	module := stubModule(0)
	h, err := Load(ctx, stubConfig("https://cdn.example", module), module, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx))

	_, err = h.Invoke(ctx, engine.GenerateUserSaltRequest{})
	assert.ErrorContains(t, err, "closed")
}

func TestProvisioner_GuestErrorReachesFacade(t *testing.T) {
	module := stubModule(1)
	srv := stubServer(t, module)

	ctx := context.Background()
	f, err := facade.Open(ctx, facade.Options{
		Provisioner: &Provisioner{
			Config:     stubConfig(srv.URL, module),
			HTTPClient: srv.Client(),
			Logger:     zerolog.Nop(),
		},
		Factory: rpc.NewFactory(),
	})
	require.NoError(t, err)
	defer f.Close()

	_, err = f.GenerateUserSalt(ctx)
	var eerr *rpc.EngineError
	require.True(t, errors.As(err, &eerr), "got %v", err)
	assert.Contains(t, eerr.Message, engine.FnGenerateUserSalt)
}

func TestProvisioner_RejectsUnpinnedBundle(t *testing.T) {
	module := stubModule(0)
	srv := stubServer(t, module)

	cfg := stubConfig(srv.URL, module)
	cfg.SHA256 = wasm.ComputeHash([]byte("another build"))
	p := &Provisioner{Config: cfg, HTTPClient: srv.Client(), Logger: zerolog.Nop()}

	_, err := p.Provision(context.Background())
	var verr *wasm.VerificationError
	assert.True(t, errors.As(err, &verr))
}
