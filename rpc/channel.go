package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Factory owns the request id source. Channels built from one Factory never
// reuse an id, even when they share a transport.
type Factory struct {
	next atomic.Uint64
}

// NewFactory returns a factory whose first id is 1.
func NewFactory() *Factory {
	return &Factory{}
}

// DefaultFactory is the process-wide id source.
var DefaultFactory = NewFactory()

// NextID returns the next request id.
func (f *Factory) NextID() uint64 {
	return f.next.Add(1)
}

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout bounds every call made without an earlier context deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) { c.timeout = d }
}

// WithLogger sets the channel logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Channel) { c.log = log }
}

// Channel multiplexes concurrent calls over one Port.
type Channel struct {
	port    Port
	factory *Factory
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[uint64]chan reply
	closed  bool

	ready     chan struct{}
	readyOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// NewChannel wraps port and starts reading replies from it.
func (f *Factory) NewChannel(port Port, opts ...Option) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		port:    port,
		factory: f,
		log:     zerolog.Nop(),
		pending: make(map[uint64]chan reply),
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c
}

// Ready is closed once the engine has posted its readiness marker.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// Pending returns the number of calls awaiting a reply.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call sends payload as [id, payload] and waits for the reply with the same
// id. Engine-reported failures are returned as *EngineError.
func (c *Channel) Call(ctx context.Context, payload any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := c.factory.NextID()
	frame, err := EncodeRequest(id, payload)
	if err != nil {
		return nil, err
	}

	slot := make(chan reply, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = slot
	c.mu.Unlock()

	if err := c.transmit(ctx, frame); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("send request %d: %w", id, err)
	}

	select {
	case r := <-slot:
		return r.result, r.err
	case <-ctx.Done():
		c.forget(id)
		c.log.Debug().Uint64("id", id).Err(ctx.Err()).Msg("call abandoned")
		return nil, ctx.Err()
	}
}

// Invoke calls the engine and decodes the result into T.
func Invoke[T any](ctx context.Context, c *Channel, payload any) (T, error) {
	var out T
	raw, err := c.Call(ctx, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

// Close fails all outstanding calls with ErrClosed and closes the port.
func (c *Channel) Close() error {
	if !c.shutdown() {
		return nil
	}
	return c.port.Close()
}

func (c *Channel) shutdown() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]chan reply)
	c.mu.Unlock()

	c.cancel()
	for _, slot := range pending {
		slot <- reply{err: ErrClosed}
	}
	return true
}

// transmit resolves the controller on every call so a controller installed
// or removed after construction takes effect immediately.
func (c *Channel) transmit(ctx context.Context, frame []byte) error {
	ctrl := controllerOf(c.port)
	if ctrl == nil {
		return c.port.Send(ctx, frame)
	}

	local, remote := NewPipe()
	if err := ctrl.Forward(ctx, frame, remote); err != nil {
		_ = local.Close()
		return err
	}
	go c.awaitDedicated(ctx, local)
	return nil
}

func (c *Channel) awaitDedicated(ctx context.Context, p Port) {
	defer p.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	msg, err := p.Receive(ctx)
	if err != nil {
		return
	}
	c.dispatch(msg)
}

func (c *Channel) readLoop() {
	for {
		msg, err := c.port.Receive(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Debug().Err(err).Msg("port receive failed")
			}
			c.shutdown()
			return
		}
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg []byte) {
	if IsReady(msg) {
		c.readyOnce.Do(func() { close(c.ready) })
		return
	}

	r, ok := decodeReply(msg)
	if !ok {
		c.log.Debug().Int("bytes", len(msg)).Msg("dropping malformed frame")
		return
	}

	c.mu.Lock()
	slot, found := c.pending[r.id]
	delete(c.pending, r.id)
	c.mu.Unlock()

	if !found {
		c.log.Debug().Uint64("id", r.id).Msg("dropping reply for unknown id")
		return
	}
	slot <- r
}

func (c *Channel) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
