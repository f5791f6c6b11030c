package resample

import (
	"fmt"
	"math"

	"ndresample/internal/models"
	"ndresample/pkg/distance"
)

// Geometry is the pixel grid of a slice: sample counts and physical pitch.
type Geometry struct {
	W, H           int
	PitchX, PitchY float64
}

// Validate checks the geometry describes a non-empty grid.
func (g Geometry) Validate() error {
	if g.W <= 0 || g.H <= 0 {
		return fmt.Errorf("invalid slice size %dx%d", g.W, g.H)
	}
	if g.PitchX <= 0 || g.PitchY <= 0 {
		return fmt.Errorf("invalid pixel pitch %gx%g", g.PitchX, g.PitchY)
	}
	return nil
}

// OutputCount is the number of output pixels covering in input pixels
// when the pitch changes from inPitch to outPitch.
func OutputCount(in int, inPitch, outPitch float64) int {
	n := int(math.Floor(float64(in)*inPitch/outPitch + 1e-6))
	if n < 1 {
		n = 1
	}
	return n
}

// OutputGeometry returns the grid obtained by resampling in to the given
// pitches.
func OutputGeometry(in Geometry, pitchX, pitchY float64) Geometry {
	return Geometry{
		W:      OutputCount(in.W, in.PitchX, pitchX),
		H:      OutputCount(in.H, in.PitchY, pitchY),
		PitchX: pitchX,
		PitchY: pitchY,
	}
}

// axisTable maps every output position along one axis to its stencil.
func axisTable(in, out int, inPitch, outPitch float64, degree models.Degree) ([]stencil, error) {
	locs := make([]float64, in)
	for i := range locs {
		locs[i] = float64(i)
	}
	rel := outPitch / inPitch
	table := make([]stencil, out)
	for i := range table {
		s, err := locate(locs, float64(i)*rel, degree)
		if err != nil {
			return nil, err
		}
		table[i] = s
	}
	return table, nil
}

// InPlane resamples raw slices from one pixel grid to another. The axis
// tables are built once per resampler and reused for every slice.
type InPlane struct {
	in, out  Geometry
	depth    models.BitDepth
	signed   bool
	method   models.DistanceMethod
	identity bool

	xTable, yTable []stencil
	scratch        *models.Plane
}

// NewInPlane prepares a resampler for slices of the given encoding.
func NewInPlane(in, out Geometry, depth models.BitDepth, signed bool, plan models.InterpolationPlan) (*InPlane, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("input geometry: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("output geometry: %w", err)
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}
	identity := in.W == out.W && in.H == out.H &&
		in.PitchX == out.PitchX && in.PitchY == out.PitchY
	r := &InPlane{
		in:       in,
		out:      out,
		depth:    depth,
		signed:   signed,
		method:   plan.Distance,
		identity: identity,
	}
	if r.identity {
		return r, nil
	}
	var err error
	if r.xTable, err = axisTable(in.W, out.W, in.PitchX, out.PitchX, plan.Degree[models.AxisX]); err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	if r.yTable, err = axisTable(in.H, out.H, in.PitchY, out.PitchY, plan.Degree[models.AxisY]); err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	if r.scratch, err = models.NewPlane(out.W, in.H); err != nil {
		return nil, err
	}
	return r, nil
}

// SliceBytes is the size of one raw input slice.
func (r *InPlane) SliceBytes() int {
	return (r.in.W*r.in.H*int(r.depth) + 7) / 8
}

// Resample decodes one raw slice and returns it on the output grid. Bit
// planes become signed distance fields first, so interpolation never sees
// raw bits.
func (r *InPlane) Resample(raw []byte) (*models.Plane, error) {
	src, err := r.decode(raw)
	if err != nil {
		return nil, err
	}
	if r.identity {
		return src, nil
	}

	// x pass: in.H rows of out.W samples
	for y := 0; y < r.in.H; y++ {
		row := src.Row(y)
		dst := r.scratch.Row(y)
		for x, s := range r.xTable {
			var acc float64
			for k := 0; k < s.taps; k++ {
				acc += s.weight[k] * float64(row[s.first+k])
			}
			dst[x] = float32(acc)
		}
	}

	// y pass
	out, err := models.NewPlane(r.out.W, r.out.H)
	if err != nil {
		return nil, err
	}
	for y, s := range r.yTable {
		dst := out.Row(y)
		for x := range dst {
			var acc float64
			for k := 0; k < s.taps; k++ {
				acc += s.weight[k] * float64(r.scratch.Data[(s.first+k)*r.scratch.W+x])
			}
			dst[x] = float32(acc)
		}
	}
	return out, nil
}

// decode widens a raw slice to float samples.
func (r *InPlane) decode(raw []byte) (*models.Plane, error) {
	if len(raw) != r.SliceBytes() {
		return nil, fmt.Errorf("slice has %d bytes, want %d", len(raw), r.SliceBytes())
	}
	n := r.in.W * r.in.H
	if r.depth == models.Bits1 {
		return distance.Local(models.UnpackBits(raw, n), r.in.W, r.in.H, r.in.PitchX, r.in.PitchY, r.method)
	}
	p, err := models.NewPlane(r.in.W, r.in.H)
	if err != nil {
		return nil, err
	}
	models.Widen(p.Data, raw, r.depth, r.signed)
	return p, nil
}
