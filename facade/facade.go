// Package facade is the single entry point applications use for key
// management. It hides the background engine behind typed calls and keeps
// the signed-in user's key material in a session.
package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/engine"
	"github.com/sonr-io/keybridge/keystore"
	"github.com/sonr-io/keybridge/rpc"
)

// DefaultReadyTimeout bounds how long Open waits for the engine when ctx has
// no deadline.
const DefaultReadyTimeout = 30 * time.Second

// Options configures Open.
type Options struct {
	// Path is accepted for compatibility with older callers. The pinned
	// bundle location of the provisioner always wins.
	Path string
	// Timeout is the default deadline of each engine call. Zero means calls
	// are bounded only by their context.
	Timeout time.Duration
	// Store persists user records. Nil selects an in-memory store.
	Store *keystore.Store
	// Factory is the request id source. Nil selects rpc.DefaultFactory.
	Factory *rpc.Factory
	// Provisioner creates the engine context. Nil selects the native engine.
	Provisioner Provisioner
	Logger      zerolog.Logger
}

// Facade exposes the twelve engine operations and the session helpers.
// Engine operations are safe for concurrent use.
type Facade struct {
	*engine.Client

	channel *rpc.Channel
	store   *keystore.Store
	log     zerolog.Logger

	mu      sync.RWMutex
	session Session

	closeOnce sync.Once
	closeErr  error
}

// Open provisions the engine, wraps its transport in a channel and waits
// for the readiness marker before returning.
func Open(ctx context.Context, opts Options) (*Facade, error) {
	log := opts.Logger
	if opts.Path != "" {
		log.Debug().Str("path", opts.Path).Msg("bundle path ignored, pinned location is used")
	}

	prov := opts.Provisioner
	if prov == nil {
		prov = &NativeProvisioner{Logger: log}
	}
	factory := opts.Factory
	if factory == nil {
		factory = rpc.DefaultFactory
	}
	store := opts.Store
	if store == nil {
		store = keystore.New(keystore.NewMemory())
	}

	port, err := prov.Provision(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision engine: %w", err)
	}

	chOpts := []rpc.Option{rpc.WithLogger(log)}
	if opts.Timeout > 0 {
		chOpts = append(chOpts, rpc.WithTimeout(opts.Timeout))
	}
	ch := factory.NewChannel(port, chOpts...)

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, DefaultReadyTimeout)
		defer cancel()
	}
	select {
	case <-ch.Ready():
	case <-waitCtx.Done():
		_ = ch.Close()
		return nil, fmt.Errorf("wait for engine: %w", waitCtx.Err())
	}
	log.Debug().Msg("engine ready")

	return &Facade{
		Client:  engine.NewRemote(ch),
		channel: ch,
		store:   store,
		log:     log,
	}, nil
}

// Close closes the channel, which tears down the engine context, and the
// key store.
func (f *Facade) Close() error {
	f.closeOnce.Do(func() {
		if err := f.channel.Close(); err != nil {
			f.closeErr = err
		}
		if err := f.store.Close(); err != nil && f.closeErr == nil {
			f.closeErr = err
		}
	})
	return f.closeErr
}
