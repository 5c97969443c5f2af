package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/rpc"
)

// Observer is told about every handled request.
type Observer func(fn string, elapsed time.Duration, err error)

// Worker is the engine end of an rpc channel. It decodes request frames,
// applies them to an Engine and encodes the replies.
type Worker struct {
	engine   Engine
	log      zerolog.Logger
	observer Observer
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(log zerolog.Logger) WorkerOption {
	return func(w *Worker) { w.log = log }
}

// WithObserver installs a request observer.
func WithObserver(o Observer) WorkerOption {
	return func(w *Worker) { w.observer = o }
}

// NewWorker serves e.
func NewWorker(e Engine, opts ...WorkerOption) *Worker {
	w := &Worker{engine: e, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle answers one request frame. It returns nil when the frame carries
// no usable id, since such a frame cannot be answered.
func (w *Worker) Handle(ctx context.Context, frame []byte) []byte {
	id, wire, err := rpc.DecodeRequest(frame)
	if err != nil && id == 0 {
		w.log.Debug().Err(err).Msg("dropping undecodable request")
		return nil
	}

	var result any
	fn := wire.Fn
	start := time.Now()
	if err == nil {
		var req Request
		if req, err = Decode(wire); err == nil {
			result, err = req.apply(ctx, w.engine)
		}
	}
	if w.observer != nil {
		w.observer(fn, time.Since(start), err)
	}
	if err != nil {
		w.log.Debug().Uint64("id", id).Str("fn", fn).Err(err).Msg("request failed")
	}

	out, encErr := rpc.EncodeReply(id, err, result)
	if encErr != nil {
		w.log.Error().Err(encErr).Uint64("id", id).Msg("encode reply")
		out, _ = rpc.EncodeReply(id, encErr, nil)
	}
	return out
}

// Serve posts the readiness marker and answers frames from port until ctx
// is done or the port closes. Requests are handled concurrently, so replies
// may leave in any order.
func (w *Worker) Serve(ctx context.Context, port rpc.Port) error {
	if err := port.Send(ctx, rpc.ReadyMarker); err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		frame, err := port.Receive(ctx)
		if err != nil {
			if errors.Is(err, rpc.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			out := w.Handle(ctx, frame)
			if out == nil {
				return
			}
			if err := port.Send(ctx, out); err != nil {
				w.log.Debug().Err(err).Msg("send reply")
			}
		}()
	}
}

// Controller returns a controller that answers each forwarded request on
// its dedicated reply port.
func (w *Worker) Controller() rpc.Controller {
	return workerController{w: w}
}

type workerController struct {
	w *Worker
}

func (c workerController) Forward(ctx context.Context, frame []byte, reply rpc.Port) error {
	go func() {
		if out := c.w.Handle(ctx, frame); out != nil {
			_ = reply.Send(ctx, out)
		}
	}()
	return nil
}
