package cluster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ndresample/pkg/logging"
	"ndresample/pkg/wire"
)

type localReply struct {
	worker int
	msg    []byte
}

// LocalTransport runs workers as goroutines. Units and results still
// travel encoded, so a local run exercises exactly the bytes a remote run
// would exchange.
type LocalTransport struct {
	codec   wire.Codec
	inbox   []chan []byte
	replies chan localReply
	group   errgroup.Group
}

// NewLocalTransport starts n worker goroutines.
func NewLocalTransport(n int, codec wire.Codec) *LocalTransport {
	if n < 1 {
		n = 1
	}
	t := &LocalTransport{
		codec:   codec,
		inbox:   make([]chan []byte, n),
		replies: make(chan localReply, n),
	}
	for i := range t.inbox {
		t.inbox[i] = make(chan []byte, 1)
		id := i
		t.group.Go(func() error {
			return t.serve(id)
		})
	}
	logging.Debugf("Started %d local workers\n", n)
	return t
}

func (t *LocalTransport) serve(id int) error {
	w := NewWorker()
	for msg := range t.inbox[id] {
		u, err := wire.DecodeWork(msg)
		if err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
		if u.Op == wire.OpExit {
			return nil
		}
		reply, err := t.codec.EncodeResult(w.Handle(u))
		if err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
		t.replies <- localReply{worker: id, msg: reply}
	}
	return nil
}

func (t *LocalTransport) Workers() int {
	return len(t.inbox)
}

func (t *LocalTransport) Send(ctx context.Context, worker int, u *wire.WorkUnit) error {
	if worker < 0 || worker >= len(t.inbox) {
		return fmt.Errorf("no worker %d", worker)
	}
	msg, err := t.codec.EncodeWork(u)
	if err != nil {
		return err
	}
	select {
	case t.inbox[worker] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *LocalTransport) Receive(ctx context.Context) (Reply, error) {
	select {
	case r := <-t.replies:
		res, err := wire.DecodeResult(r.msg)
		if err != nil {
			return Reply{}, fmt.Errorf("reply from worker %d: %w", r.worker, err)
		}
		return Reply{Worker: r.worker, Result: res}, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Terminate asks every worker to exit and waits for them. Replies still
// queued are dropped.
func (t *LocalTransport) Terminate(_ context.Context, jobID string) error {
	exit, err := t.codec.EncodeWork(wire.NewExit(jobID))
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		// drain so a worker finishing an abandoned unit never blocks
		for {
			select {
			case <-t.replies:
			case <-done:
				return
			}
		}
	}()
	for _, in := range t.inbox {
		select {
		case in <- exit:
		default:
			// the worker died with a unit queued; closing is enough
		}
		close(in)
	}
	err = t.group.Wait()
	close(done)
	return err
}
