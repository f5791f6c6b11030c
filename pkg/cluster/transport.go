// Package cluster runs resampling and distance jobs on a pool of workers.
//
// A Coordinator hands WorkUnits to workers through a Transport, one unit
// per worker at a time, and merges the ResultUnits in whatever order they
// come back. Workers may be goroutines of the same process or separate
// processes reached over TCP.
package cluster

import (
	"context"

	"ndresample/pkg/wire"
)

// Reply is a result together with the worker that produced it.
type Reply struct {
	Worker int
	Result *wire.ResultUnit
}

// Transport moves units to workers and results back.
//
// Send must not block for long: a worker has at most one outstanding unit,
// so transports need buffer room for one unit per worker and one reply per
// worker.
type Transport interface {
	// Workers is the number of workers reachable through the transport.
	Workers() int

	// Send assigns a unit to a worker.
	Send(ctx context.Context, worker int, u *wire.WorkUnit) error

	// Receive waits for the next reply from any worker.
	Receive(ctx context.Context) (Reply, error)

	// Terminate sends Exit to every worker and releases the transport.
	Terminate(ctx context.Context, jobID string) error
}
