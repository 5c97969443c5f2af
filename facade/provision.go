package facade

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/engine"
	"github.com/sonr-io/keybridge/engine/native"
	"github.com/sonr-io/keybridge/rpc"
)

// Provisioner creates the isolated background context that runs the engine
// and returns the port connected to it. Closing the port tears the context
// down.
type Provisioner interface {
	Provision(ctx context.Context) (rpc.Port, error)
}

// ProvisionerFunc adapts a function to Provisioner.
type ProvisionerFunc func(ctx context.Context) (rpc.Port, error)

func (f ProvisionerFunc) Provision(ctx context.Context) (rpc.Port, error) {
	return f(ctx)
}

// NativeProvisioner runs the in-process engine on a background worker.
type NativeProvisioner struct {
	Scheme    native.Scheme
	KDFConfig *argon2.Config
	Logger    zerolog.Logger
	Observer  engine.Observer
}

func (p *NativeProvisioner) Provision(ctx context.Context) (rpc.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts []native.Option
	if p.Scheme != "" {
		opts = append(opts, native.WithScheme(p.Scheme))
	}
	if p.KDFConfig != nil {
		opts = append(opts, native.WithKDFConfig(p.KDFConfig))
	}
	e, err := native.New(opts...)
	if err != nil {
		return nil, err
	}

	wopts := []engine.WorkerOption{engine.WithWorkerLogger(p.Logger)}
	if p.Observer != nil {
		wopts = append(wopts, engine.WithObserver(p.Observer))
	}
	return engine.Spawn(e, wopts), nil
}
