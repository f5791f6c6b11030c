package cluster

import (
	"fmt"
	"time"

	"ndresample/internal/models"
	"ndresample/pkg/distance"
	"ndresample/pkg/resample"
	"ndresample/pkg/wire"
)

// Worker computes units. It keeps its resampler between units of the same
// geometry and is not safe for concurrent use.
type Worker struct {
	engine *resample.Engine
}

func NewWorker() *Worker {
	return &Worker{engine: resample.NewEngine()}
}

// Handle processes one unit. Failures are reported in the result rather
// than returned, so the coordinator learns about them.
func (w *Worker) Handle(u *wire.WorkUnit) *wire.ResultUnit {
	start := time.Now()
	res := &wire.ResultUnit{
		Op:        u.Op,
		JobID:     u.JobID,
		Seq:       u.Seq,
		OutVolume: u.OutVolume,
		OutFirstZ: u.OutFirstZ,
	}
	var err error
	switch u.Op {
	case wire.OpInterpolate:
		err = w.interpolate(u, res)
	case wire.OpDistanceSlab:
		err = distanceSlab(u, res)
	default:
		err = fmt.Errorf("unexpected op %s", u.Op)
	}
	if err != nil {
		res.Err = err.Error()
		res.Payload = nil
	}
	res.ComputeTime = time.Since(start)
	return res
}

func (w *Worker) interpolate(u *wire.WorkUnit, res *wire.ResultUnit) error {
	req, err := RequestFromUnit(u)
	if err != nil {
		return err
	}
	out, err := w.engine.Run(req)
	if err != nil {
		return err
	}
	res.BitDepth = u.BitDepth
	res.SliceCount = len(u.OutZLocations)
	res.Payload = out.Data
	res.Min, res.Max = out.Min, out.Max
	return nil
}

// RequestFromUnit rebuilds the resampling request a unit describes,
// splitting its payload into the slices of every source.
func RequestFromUnit(u *wire.WorkUnit) (*resample.Request, error) {
	if !u.BitDepth.Valid() {
		return nil, fmt.Errorf("unit %d: unsupported bit depth %d", u.Seq, u.BitDepth)
	}
	req := &resample.Request{
		Plan:        u.Plan,
		Depth:       u.BitDepth,
		Signed:      u.Signed,
		In:          resample.Geometry{W: u.InCount[0], H: u.InCount[1], PitchX: u.InPitch[0], PitchY: u.InPitch[1]},
		Out:         resample.Geometry{W: u.OutCount[0], H: u.OutCount[1], PitchX: u.OutPitch[0], PitchY: u.OutPitch[1]},
		OutLocation: u.OutVolumeLocation,
		OutZ:        u.OutZLocations,
	}
	if err := req.In.Validate(); err != nil {
		return nil, fmt.Errorf("unit %d: %w", u.Seq, err)
	}
	per := (req.In.W*req.In.H*int(u.BitDepth) + 7) / 8
	off := 0
	for _, c := range u.Sources {
		src := resample.Source{
			Volume:    c.Volume,
			Location:  c.VolumeLocation,
			Locations: c.ZLocations,
			Slices:    make([][]byte, len(c.ZLocations)),
		}
		for i := range src.Slices {
			if off+per > len(u.Payload) {
				return nil, fmt.Errorf("unit %d: payload of %d bytes too short", u.Seq, len(u.Payload))
			}
			src.Slices[i] = u.Payload[off : off+per]
			off += per
		}
		req.Sources = append(req.Sources, src)
	}
	if off != len(u.Payload) {
		return nil, fmt.Errorf("unit %d: %d payload bytes left over", u.Seq, len(u.Payload)-off)
	}
	return req, nil
}

func distanceSlab(u *wire.WorkUnit, res *wire.ResultUnit) error {
	g := models.Grid3{X: u.InCount[0], Y: u.InCount[1], Z: u.SlabDepth}
	if g.X <= 0 || g.Y <= 0 || g.Z <= 0 {
		return fmt.Errorf("unit %d: invalid slab %dx%dx%d", u.Seq, g.X, g.Y, g.Z)
	}
	if len(u.Payload) != g.Len() {
		return fmt.Errorf("unit %d: slab mask has %d voxels, want %d", u.Seq, len(u.Payload), g.Len())
	}
	features := make([]bool, g.Len())
	for i, b := range u.Payload {
		features[i] = b != 0
	}
	sq := distance.SlabXY(features, g, u.InPitch[0], u.InPitch[1])
	res.SliceCount = g.Z
	res.Payload = wire.EncodeFloats(sq)
	return nil
}
