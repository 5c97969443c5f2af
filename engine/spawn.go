package engine

import (
	"context"
	"sync"

	"github.com/sonr-io/keybridge/rpc"
)

// Spawn runs e on a background worker and returns the caller's end of the
// in-memory port connected to it. Closing the returned port stops the
// worker and then runs each onClose hook.
func Spawn(e Engine, opts []WorkerOption, onClose ...func() error) rpc.Port {
	ctx, cancel := context.WithCancel(context.Background())
	local, remote := rpc.NewPipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewWorker(e, opts...).Serve(ctx, remote)
	}()

	return &spawnedPort{Port: local, cancel: cancel, done: done, hooks: onClose}
}

type spawnedPort struct {
	rpc.Port

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
	hooks  []func() error
	err    error
}

func (p *spawnedPort) Close() error {
	p.once.Do(func() {
		p.cancel()
		_ = p.Port.Close()
		<-p.done
		for _, hook := range p.hooks {
			if err := hook(); err != nil && p.err == nil {
				p.err = err
			}
		}
	})
	return p.err
}
