// Package rpc correlates request and reply frames exchanged with a crypto
// engine over an asynchronous message port.
package rpc

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by ports and channels after Close.
var ErrClosed = errors.New("rpc: closed")

// Port is a bidirectional message transport. Frames are opaque bytes.
type Port interface {
	Send(ctx context.Context, frame []byte) error
	// Receive blocks until a frame arrives, ctx is done, or the port closes.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Controller forwards a request frame to the engine together with a
// dedicated port on which the engine must post the reply.
type Controller interface {
	Forward(ctx context.Context, frame []byte, reply Port) error
}

// ControllerSource is implemented by ports that may route through a
// controller. A nil Controller means the port is used directly.
type ControllerSource interface {
	Controller() Controller
}

func controllerOf(p Port) Controller {
	if src, ok := p.(ControllerSource); ok {
		return src.Controller()
	}
	return nil
}

const pipeBuffer = 64

type pipeState struct {
	once sync.Once
	done chan struct{}
}

func (s *pipeState) close() {
	s.once.Do(func() { close(s.done) })
}

type pipeEnd struct {
	state *pipeState
	in    chan []byte
	peer  *pipeEnd
}

// NewPipe returns the two connected ends of an in-memory port. Closing
// either end closes both.
func NewPipe() (Port, Port) {
	state := &pipeState{done: make(chan struct{})}
	a := &pipeEnd{state: state, in: make(chan []byte, pipeBuffer)}
	b := &pipeEnd{state: state, in: make(chan []byte, pipeBuffer)}
	a.peer, b.peer = b, a
	return a, b
}

func (e *pipeEnd) Send(ctx context.Context, frame []byte) error {
	select {
	case <-e.state.done:
		return ErrClosed
	default:
	}

	msg := append([]byte(nil), frame...)
	select {
	case e.peer.in <- msg:
		return nil
	case <-e.state.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-e.in:
		return msg, nil
	case <-e.state.done:
		// frames sent before the close are still delivered
		select {
		case msg := <-e.in:
			return msg, nil
		default:
		}
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *pipeEnd) Close() error {
	e.state.close()
	return nil
}

// ControlledPort wraps a port with a controller that can be swapped at any
// time. Channels consult Controller on every call.
type ControlledPort struct {
	Port

	mu   sync.RWMutex
	ctrl Controller
}

// NewControlledPort wraps p with no controller installed.
func NewControlledPort(p Port) *ControlledPort {
	return &ControlledPort{Port: p}
}

// SetController installs ctrl, or removes the controller when nil.
func (p *ControlledPort) SetController(ctrl Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctrl = ctrl
}

// Controller implements ControllerSource.
func (p *ControlledPort) Controller() Controller {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctrl
}
