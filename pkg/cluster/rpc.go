package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/gorpc"

	"ndresample/pkg/logging"
	"ndresample/pkg/wire"
)

// noTimeout stands in for "wait forever": a worker that never answers
// stalls the job rather than having its unit reassigned.
const noTimeout = 365 * 24 * time.Hour

func init() {
	gorpc.SetErrorLogger(logging.Errorf)
}

type rpcReply struct {
	worker int
	msg    []byte
	err    error
}

// RPCTransport reaches worker processes over TCP, one connection per
// worker address.
type RPCTransport struct {
	codec   wire.Codec
	clients []*gorpc.Client
	addrs   []string
	replies chan rpcReply
	pending sync.WaitGroup
}

// DialRPC starts a client for every worker address. A zero timeout waits
// for replies indefinitely.
func DialRPC(addrs []string, codec wire.Codec, timeout time.Duration) (*RPCTransport, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no worker addresses given")
	}
	if timeout <= 0 {
		timeout = noTimeout
	}
	t := &RPCTransport{
		codec:   codec,
		addrs:   addrs,
		replies: make(chan rpcReply, len(addrs)),
	}
	for _, addr := range addrs {
		c := gorpc.NewTCPClient(addr)
		c.RequestTimeout = timeout
		c.Start()
		t.clients = append(t.clients, c)
	}
	logging.Infof("Connected to %d workers\n", len(addrs))
	return t, nil
}

func (t *RPCTransport) Workers() int {
	return len(t.clients)
}

// Send issues the call in the background; its reply surfaces through
// Receive.
func (t *RPCTransport) Send(_ context.Context, worker int, u *wire.WorkUnit) error {
	if worker < 0 || worker >= len(t.clients) {
		return fmt.Errorf("no worker %d", worker)
	}
	msg, err := t.codec.EncodeWork(u)
	if err != nil {
		return err
	}
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		resp, err := t.clients[worker].Call(msg)
		if err != nil {
			t.replies <- rpcReply{worker: worker, err: err}
			return
		}
		b, ok := resp.([]byte)
		if !ok {
			t.replies <- rpcReply{worker: worker, err: fmt.Errorf("unexpected response type %T", resp)}
			return
		}
		t.replies <- rpcReply{worker: worker, msg: b}
	}()
	return nil
}

func (t *RPCTransport) Receive(ctx context.Context) (Reply, error) {
	select {
	case r := <-t.replies:
		if r.err != nil {
			return Reply{}, fmt.Errorf("worker %s: %w", t.addrs[r.worker], r.err)
		}
		res, err := wire.DecodeResult(r.msg)
		if err != nil {
			return Reply{}, fmt.Errorf("reply from worker %s: %w", t.addrs[r.worker], err)
		}
		return Reply{Worker: r.worker, Result: res}, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

const (
	// exitTimeout bounds the wait for a worker to acknowledge Exit.
	exitTimeout = 5 * time.Second

	// exitDelay keeps a worker serving after Exit until its reply has
	// reached the coordinator.
	exitDelay = 200 * time.Millisecond
)

// Terminate sends Exit to every worker, then closes the connections.
// Workers that are gone by then are only logged.
func (t *RPCTransport) Terminate(_ context.Context, jobID string) error {
	exit, err := t.codec.EncodeWork(wire.NewExit(jobID))
	if err != nil {
		return err
	}
	go func() {
		for range t.replies {
		}
	}()
	for i, c := range t.clients {
		if _, err := c.CallTimeout(exit, exitTimeout); err != nil {
			logging.Debugf("Exit to worker %s: %v\n", t.addrs[i], err)
		}
		c.Stop()
	}
	t.pending.Wait()
	close(t.replies)
	return nil
}

// Server serves WorkUnits to a remote coordinator.
type Server struct {
	codec  wire.Codec
	worker *Worker
	mu     sync.Mutex
	srv    *gorpc.Server
	exit   chan struct{}
	once   sync.Once
}

// NewServer returns a worker server listening on addr once started.
func NewServer(addr string, codec wire.Codec) *Server {
	s := &Server{codec: codec, worker: NewWorker(), exit: make(chan struct{})}
	s.srv = gorpc.NewTCPServer(addr, s.handle)
	return s
}

// handle processes one request. Units are handled one at a time even if
// a coordinator sends several.
func (s *Server) handle(clientAddr string, request interface{}) interface{} {
	msg, ok := request.([]byte)
	if !ok {
		logging.Errorf("Request of type %T from %s ignored\n", request, clientAddr)
		return nil
	}
	u, err := wire.DecodeWork(msg)
	if err != nil {
		logging.Errorf("Bad unit from %s: %v\n", clientAddr, err)
		return nil
	}
	if u.Op == wire.OpExit {
		logging.Infof("Job %s finished, exit requested by %s\n", u.JobID, clientAddr)
		time.AfterFunc(exitDelay, func() {
			s.once.Do(func() { close(s.exit) })
		})
		return nil
	}

	s.mu.Lock()
	res := s.worker.Handle(u)
	s.mu.Unlock()

	reply, err := s.codec.EncodeResult(res)
	if err != nil {
		logging.Errorf("Cannot encode result of unit %d: %v\n", u.Seq, err)
		return nil
	}
	return reply
}

// Listen starts accepting connections.
func (s *Server) Listen() error {
	if err := s.srv.Start(); err != nil {
		return fmt.Errorf("cannot start worker server: %w", err)
	}
	logging.Infof("Worker listening on %s\n", s.Addr())
	return nil
}

// Addr returns the address the server listens on, with the port resolved
// once Listen has succeeded.
func (s *Server) Addr() string {
	if s.srv.Listener != nil {
		if a := s.srv.Listener.ListenAddr(); a != nil {
			return a.String()
		}
	}
	return s.srv.Addr
}

// Wait blocks until an Exit message arrives or ctx is done, then stops
// the server.
func (s *Server) Wait(ctx context.Context) {
	defer s.srv.Stop()
	select {
	case <-s.exit:
	case <-ctx.Done():
	}
}

// Serve listens and runs until an Exit message arrives or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.Wait(ctx)
	return nil
}
