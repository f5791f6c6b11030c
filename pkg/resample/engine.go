package resample

import (
	"fmt"
	"math"

	"ndresample/internal/models"
)

// Request is everything needed to produce a run of output slices of one
// output volume.
type Request struct {
	Plan   models.InterpolationPlan
	Depth  models.BitDepth
	Signed bool

	In  Geometry
	Out Geometry

	// OutLocation is the position of the output volume on the fourth axis
	OutLocation float64

	// OutZ holds the z location of every output slice to produce
	OutZ []float64

	// Sources are ordered by volume location
	Sources []Source
}

// Result is a run of quantized output slices.
type Result struct {
	Data     []byte
	Min, Max int64
}

// Engine performs resampling requests. It keeps its in-plane resampler
// between requests with the same geometry; caches live for one request.
// An Engine is not safe for concurrent use.
type Engine struct {
	inplane *InPlane
	key     inplaneKey
}

type inplaneKey struct {
	in, out Geometry
	depth   models.BitDepth
	signed  bool
	x, y    models.Degree
	method  models.DistanceMethod
}

// NewEngine returns an engine with no cached state.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) resampler(req *Request) (*InPlane, error) {
	key := inplaneKey{
		in:     req.In,
		out:    req.Out,
		depth:  req.Depth,
		signed: req.Signed,
		x:      req.Plan.Degree[models.AxisX],
		y:      req.Plan.Degree[models.AxisY],
		method: req.Plan.Distance,
	}
	if e.inplane != nil && e.key == key {
		return e.inplane, nil
	}
	r, err := NewInPlane(req.In, req.Out, req.Depth, req.Signed, req.Plan)
	if err != nil {
		return nil, err
	}
	e.inplane, e.key = r, key
	return r, nil
}

// OutputSliceBytes is the size of one quantized output slice.
func (r *Request) OutputSliceBytes() int {
	return (r.Out.W*r.Out.H*int(r.Depth) + 7) / 8
}

// Run produces every slice of the request in order.
func (e *Engine) Run(req *Request) (*Result, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("request has no input volumes")
	}
	if len(req.OutZ) == 0 {
		return nil, fmt.Errorf("request has no output slices")
	}
	inplane, err := e.resampler(req)
	if err != nil {
		return nil, err
	}

	volumeLocs := make([]float64, len(req.Sources))
	sweeps := make([]*CrossSlice, len(req.Sources))
	for i := range req.Sources {
		src := &req.Sources[i]
		if i > 0 && !(src.Location > volumeLocs[i-1]) {
			return nil, fmt.Errorf("volume locations not increasing at volume %d", src.Volume)
		}
		volumeLocs[i] = src.Location
		if sweeps[i], err = NewCrossSlice(src, req.Plan.Degree[models.AxisZ], inplane); err != nil {
			return nil, err
		}
	}
	tStencil, err := locate(volumeLocs, req.OutLocation, req.Plan.Degree[models.AxisT])
	if err != nil {
		return nil, fmt.Errorf("volume axis at t=%g: %w", req.OutLocation, err)
	}

	sliceBytes := req.OutputSliceBytes()
	res := &Result{
		Data: make([]byte, sliceBytes*len(req.OutZ)),
		Min:  math.MaxInt64,
		Max:  math.MinInt64,
	}
	planes := make([]*models.Plane, tStencil.taps)
	for i, z := range req.OutZ {
		for k := range planes {
			if planes[k], err = sweeps[tStencil.first+k].PlaneAt(z); err != nil {
				return nil, err
			}
		}
		plane := planes[0]
		if tStencil.taps > 1 {
			if plane, err = blend(planes, tStencil.weight[:tStencil.taps]); err != nil {
				return nil, err
			}
		}
		lo, hi, err := Quantize(plane, req.Depth, req.Signed, res.Data[i*sliceBytes:(i+1)*sliceBytes])
		if err != nil {
			return nil, err
		}
		if lo < res.Min {
			res.Min = lo
		}
		if hi > res.Max {
			res.Max = hi
		}
	}
	return res, nil
}
