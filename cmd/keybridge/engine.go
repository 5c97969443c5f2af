package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sonr-io/keybridge/bridge"
	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/engine/native"
	"github.com/sonr-io/keybridge/engine/wasmhost"
	"github.com/sonr-io/keybridge/facade"
	"github.com/sonr-io/keybridge/keystore"
)

// provisioner builds the engine provisioner selected by c.
func (c *Config) provisioner() (facade.Provisioner, error) {
	switch c.Engine.Provisioner {
	case ProvisionerNative:
		scheme, err := native.ParseScheme(c.Engine.Scheme)
		if err != nil {
			return nil, err
		}
		p := &facade.NativeProvisioner{Scheme: scheme, Logger: log}
		if c.Engine.KDFProfile == "light" {
			p.KDFConfig = argon2.LightConfig()
		}
		return p, nil
	case ProvisionerWASM:
		return &wasmhost.Provisioner{Config: c.Engine.WASM, Logger: log}, nil
	case ProvisionerBridge:
		token := c.Engine.BridgeToken
		if v := os.Getenv("KEYBRIDGE_BRIDGE_TOKEN"); v != "" {
			token = v
		}
		return &bridge.Provisioner{URL: c.Engine.BridgeURL, Token: token}, nil
	default:
		return nil, fmt.Errorf("unknown engine provisioner %q", c.Engine.Provisioner)
	}
}

// openStore opens the configured key store, creating its directory.
func (c *Config) openStore() (*keystore.Store, error) {
	if c.Store.Backend != keystore.BackendMemory {
		if err := ensureParent(c.Store.Path); err != nil {
			return nil, err
		}
	}
	m, err := keystore.Open(c.Store.Backend, c.Store.Path)
	if err != nil {
		return nil, err
	}
	return keystore.New(m), nil
}

// openFacade starts the engine and key store described by cfg.
func openFacade(ctx context.Context) (*facade.Facade, error) {
	prov, err := cfg.provisioner()
	if err != nil {
		return nil, err
	}
	store, err := cfg.openStore()
	if err != nil {
		return nil, err
	}
	f, err := facade.Open(ctx, facade.Options{
		Timeout:     cfg.Engine.Timeout,
		Store:       store,
		Provisioner: prov,
		Logger:      log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return f, nil
}
