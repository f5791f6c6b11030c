package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/twinj/uuid"
	"gonum.org/v1/gonum/stat"

	"ndresample/pkg/logging"
	"ndresample/pkg/wire"
)

// ErrJobAborted is returned when a worker fails a unit. The job is not
// retried.
var ErrJobAborted = errors.New("job aborted")

// Job yields the units of a computation and merges their results.
type Job interface {
	// Units is the total number of units Next will yield.
	Units() int

	// Next returns the next unassigned unit, or nil when none is left.
	Next() (*wire.WorkUnit, error)

	// Merge stores a result. Results arrive in any order.
	Merge(r *wire.ResultUnit) error
}

// Stats summarizes a finished job.
type Stats struct {
	JobID     string
	Units     int
	SentBytes uint64
	RecvBytes uint64

	// MeanCompute and StdCompute describe the worker time per unit.
	MeanCompute time.Duration
	StdCompute  time.Duration
	Elapsed     time.Duration
}

// Coordinator assigns units greedily: every worker starts with one unit
// and gets the next one as soon as it replies.
type Coordinator struct {
	Transport Transport

	// Quiet suppresses the progress line.
	Quiet bool
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return fmt.Sprintf("%x", uuid.NewV4().Bytes())
}

// Run executes the job to completion or to the first failure, then sends
// Exit to every worker.
func (c *Coordinator) Run(ctx context.Context, job Job) (Stats, error) {
	stats := Stats{JobID: NewJobID()}
	tlog := logging.NewTimeLog()

	err := c.run(ctx, job, &stats)
	if termErr := c.Transport.Terminate(ctx, stats.JobID); termErr != nil && err == nil {
		err = fmt.Errorf("terminating workers: %w", termErr)
	}
	stats.Elapsed = tlog.Elapsed()
	if err != nil {
		return stats, err
	}
	tlog.Infof("Job %s: %d units, sent %s, received %s, compute %s ± %s per unit",
		stats.JobID, stats.Units, humanize.Bytes(stats.SentBytes), humanize.Bytes(stats.RecvBytes),
		stats.MeanCompute, stats.StdCompute)
	return stats, nil
}

func (c *Coordinator) run(ctx context.Context, job Job, stats *Stats) error {
	total := job.Units()
	seq := 0
	busy := 0

	assign := func(worker int) error {
		u, err := job.Next()
		if err != nil || u == nil {
			return err
		}
		u.JobID = stats.JobID
		u.Seq = seq
		seq++
		if err := c.Transport.Send(ctx, worker, u); err != nil {
			return fmt.Errorf("sending unit %d to worker %d: %w", u.Seq, worker, err)
		}
		stats.SentBytes += uint64(len(u.Payload))
		busy++
		return nil
	}

	for w := 0; w < c.Transport.Workers(); w++ {
		if err := assign(w); err != nil {
			return err
		}
	}

	var times []float64
	for busy > 0 {
		rep, err := c.Transport.Receive(ctx)
		if err != nil {
			return err
		}
		busy--
		r := rep.Result
		if r.JobID != stats.JobID {
			return fmt.Errorf("%w: worker %d answered for job %q", ErrJobAborted, rep.Worker, r.JobID)
		}
		if r.Err != "" {
			return fmt.Errorf("%w: worker %d failed unit %d: %s", ErrJobAborted, rep.Worker, r.Seq, r.Err)
		}
		if err := job.Merge(r); err != nil {
			return fmt.Errorf("merging unit %d: %w", r.Seq, err)
		}
		stats.Units++
		stats.RecvBytes += uint64(len(r.Payload))
		times = append(times, r.ComputeTime.Seconds())
		if !c.Quiet && total > 0 {
			fmt.Printf("\rProcessing units: %.1f%% complete", float64(stats.Units)/float64(total)*100)
		}
		if err := assign(rep.Worker); err != nil {
			return err
		}
	}
	if !c.Quiet && total > 0 {
		fmt.Println()
	}
	if stats.Units != total {
		return fmt.Errorf("merged %d of %d units", stats.Units, total)
	}
	if len(times) > 0 {
		mean, std := stat.MeanStdDev(times, nil)
		if len(times) < 2 {
			std = 0
		}
		stats.MeanCompute = time.Duration(mean * float64(time.Second))
		stats.StdCompute = time.Duration(std * float64(time.Second))
	}
	return nil
}
