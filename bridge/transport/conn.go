// Package transport carries engine frames over a websocket.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonr-io/keybridge/rpc"
)

const (
	// DefaultWriteTimeout bounds a single frame write when ctx has no deadline.
	DefaultWriteTimeout = 10 * time.Second
	// MaxFrameSize is the largest frame accepted from the peer.
	MaxFrameSize = 1 << 20

	inboundBuffer = 64
	closeGrace    = time.Second
)

// Conn adapts a websocket connection to rpc.Port. Each frame is one text
// message.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	inbound chan []byte

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

var _ rpc.Port = (*Conn)(nil)

// Wrap takes ownership of ws and starts reading from it.
func Wrap(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(MaxFrameSize)
	c := &Conn{
		ws:      ws,
		inbound: make(chan []byte, inboundBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Dial opens a websocket to url and wraps it.
func Dial(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header) (*Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return Wrap(ws), nil
}

func (c *Conn) readLoop() {
	defer c.finish()
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case c.inbound <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return rpc.ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", rpc.ErrClosed, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.finish()
		return fmt.Errorf("%w: %v", rpc.ErrClosed, err)
	}
	return nil
}

// Receive returns the next frame from the peer. Frames read before the
// connection closed are still delivered.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.done:
		select {
		case msg := <-c.inbound:
			return msg, nil
		default:
			return nil, rpc.ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the connection is closed by either side.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close message and releases the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		select {
		case <-c.done:
		default:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		}
		c.writeMu.Unlock()

		c.finish()
		err = c.ws.Close()
	})
	return err
}
