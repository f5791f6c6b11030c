// Package wire defines the messages exchanged between the coordinator and
// its workers and their binary encoding.
//
// Every message travels in an envelope carrying a format version, the
// message kind, optional snappy compression and an xxhash checksum of the
// body. Bodies are msgpack maps, so fields can be added without breaking
// older readers.
package wire

import (
	"time"

	"ndresample/internal/models"
)

// Op tells a worker what to do with a unit.
type Op int

const (
	// OpInterpolate resamples a run of output slices.
	OpInterpolate Op = iota + 1
	// OpDistanceSlab runs the in-plane passes of the exact distance
	// transform over a z-slab.
	OpDistanceSlab
	// OpExit asks the worker to stop.
	OpExit
)

func (o Op) String() string {
	switch o {
	case OpInterpolate:
		return "interpolate"
	case OpDistanceSlab:
		return "distance-slab"
	case OpExit:
		return "exit"
	}
	return "unknown"
}

// SourceChunk locates the slices of one input volume inside a WorkUnit
// payload.
type SourceChunk struct {
	Volume         int
	VolumeLocation float64
	FirstSlice     int
	ZLocations     []float64
}

// WorkUnit is one assignment sent to a worker. The coordinator builds it
// and hands it over; it is not touched after sending.
type WorkUnit struct {
	Op    Op
	JobID string
	Seq   int

	Plan     models.InterpolationPlan
	BitDepth models.BitDepth
	Signed   bool

	InCount  [2]int
	InPitch  [2]float64
	OutCount [2]int
	OutPitch [2]float64

	OutVolume         int
	OutVolumeLocation float64
	OutFirstZ         int
	OutZLocations     []float64

	Sources []SourceChunk

	// SlabDepth is the number of slices of a distance slab.
	SlabDepth int

	// Payload holds the raw slices of every source in order, or the
	// feature mask of a distance slab (one byte per voxel).
	Payload []byte
}

// ResultUnit is a worker's answer to one WorkUnit.
type ResultUnit struct {
	Op    Op
	JobID string
	Seq   int

	OutVolume  int
	OutFirstZ  int
	SliceCount int
	BitDepth   models.BitDepth

	// Payload holds the quantized slices, or the squared distances of a
	// slab as little-endian float64.
	Payload []byte

	Min, Max    int64
	ComputeTime time.Duration

	// Err is set when the worker could not process the unit.
	Err string
}

// NewExit returns the message that terminates a worker.
func NewExit(jobID string) *WorkUnit {
	return &WorkUnit{Op: OpExit, JobID: jobID}
}
