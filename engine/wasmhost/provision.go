package wasmhost

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/engine"
	"github.com/sonr-io/keybridge/rpc"
)

// Provisioner fetches the pinned bundle, loads it and serves it on a
// background worker.
type Provisioner struct {
	Config     *Config
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Observer   engine.Observer
}

// Provision returns the port of a ready-to-serve engine. Closing the port
// unloads the bundle.
func (p *Provisioner) Provision(ctx context.Context) (rpc.Port, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	bundle, err := NewFetcher(p.HTTPClient, p.Logger).Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	host, err := Load(ctx, cfg, bundle, p.Logger)
	if err != nil {
		return nil, err
	}
	state := host.State()
	p.Logger.Debug().
		Str("url", cfg.BundleURL).
		Int("bytes", len(bundle)).
		Time("created_at", state.CreatedAt).
		Bool("healthy", state.IsHealthy).
		Msg("engine bundle loaded")

	opts := []engine.WorkerOption{engine.WithWorkerLogger(p.Logger)}
	if p.Observer != nil {
		opts = append(opts, engine.WithObserver(p.Observer))
	}
	return engine.Spawn(host.Engine(), opts, func() error {
		return host.Close(context.Background())
	}), nil
}
