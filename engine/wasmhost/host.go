package wasmhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	extism "github.com/extism/go-sdk"
	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/engine"
)

// maxErrors is the number of consecutive failed calls after which the
// plugin is rebuilt.
const maxErrors = 5

// PluginState tracks the health of the running plugin instance.
type PluginState struct {
	CreatedAt  time.Time
	LastUsed   time.Time
	IsHealthy  bool
	ErrorCount int
}

// UpdateHealth updates the plugin health status based on operation result.
func (s *PluginState) UpdateHealth(err error) {
	s.LastUsed = time.Now()
	if err != nil {
		s.ErrorCount++
		if s.ErrorCount >= maxErrors {
			s.IsHealthy = false
		}
		return
	}
	s.ErrorCount = 0
	s.IsHealthy = true
}

// Host is a loaded engine bundle. Each exported guest function takes the
// JSON args array of one request and returns its JSON result.
//
// Extism plugins are not safe for concurrent use, so calls are serialized.
type Host struct {
	cfg    *Config
	bundle []byte
	log    zerolog.Logger

	mu     sync.Mutex
	plugin *extism.Plugin
	state  PluginState
}

var _ engine.Invoker = (*Host)(nil)

// Load instantiates bundle and checks that it exports every engine
// function.
func Load(ctx context.Context, cfg *Config, bundle []byte, log zerolog.Logger) (*Host, error) {
	h := &Host{cfg: cfg, bundle: bundle, log: log}
	plugin, err := h.newPlugin(ctx)
	if err != nil {
		return nil, err
	}
	h.plugin = plugin
	h.state = PluginState{CreatedAt: time.Now(), LastUsed: time.Now(), IsHealthy: true}
	return h, nil
}

func (h *Host) newPlugin(ctx context.Context) (*extism.Plugin, error) {
	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmData{
				Data: h.bundle,
				Name: "engine",
			},
		},
		Config: h.cfg.ToManifestConfig(),
	}
	if h.cfg.Timeouts.Call > 0 {
		manifest.Timeout = uint64(h.cfg.Timeouts.Call.Milliseconds())
	}

	initCtx := ctx
	if h.cfg.Timeouts.PluginInit > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, h.cfg.Timeouts.PluginInit)
		defer cancel()
	}

	plugin, err := extism.NewPlugin(initCtx, manifest, h.cfg.ToPluginConfig(), []extism.HostFunction{})
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin: %w", err)
	}
	for _, fn := range engine.Functions {
		if !plugin.FunctionExists(fn) {
			plugin.Close(ctx)
			return nil, fmt.Errorf("engine bundle does not export %q", fn)
		}
	}
	return plugin, nil
}

// Engine returns an engine.Engine backed by the host.
func (h *Host) Engine() *engine.Client {
	return engine.NewClient(h)
}

// Invoke implements engine.Invoker.
func (h *Host) Invoke(ctx context.Context, req engine.Request) (json.RawMessage, error) {
	input, err := json.Marshal(engine.NewPayload(req).Args)
	if err != nil {
		return nil, fmt.Errorf("%s: encode args: %w", req.Fn(), err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.plugin == nil {
		return nil, fmt.Errorf("engine host is closed")
	}
	if !h.state.IsHealthy {
		if err := h.recover(ctx); err != nil {
			return nil, err
		}
	}

	_, out, err := h.plugin.CallWithContext(ctx, req.Fn(), input)
	h.state.UpdateHealth(err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Fn(), err)
	}
	return json.RawMessage(out), nil
}

// recover rebuilds the plugin from the verified bundle. Caller holds mu.
func (h *Host) recover(ctx context.Context) error {
	h.log.Warn().Int("errors", h.state.ErrorCount).Msg("recreating unhealthy engine plugin")
	h.plugin.Close(ctx)

	plugin, err := h.newPlugin(ctx)
	if err != nil {
		h.plugin = nil
		return fmt.Errorf("failed to recover plugin: %w", err)
	}
	h.plugin = plugin
	h.state = PluginState{CreatedAt: time.Now(), LastUsed: time.Now(), IsHealthy: true}
	return nil
}

// State returns a snapshot of the plugin health.
func (h *Host) State() PluginState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close releases the plugin.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.plugin == nil {
		return nil
	}
	err := h.plugin.Close(ctx)
	h.plugin = nil
	return err
}
