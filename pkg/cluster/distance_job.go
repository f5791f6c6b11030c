package cluster

import (
	"fmt"
	"math"

	"github.com/kshedden/gonpy"

	"ndresample/internal/models"
	"ndresample/pkg/distance"
	"ndresample/pkg/wire"
)

// DistanceJob computes an exact distance map with the in-plane passes
// split into z-slabs, one slab per worker. The z pass runs on the
// coordinator once every slab is back.
type DistanceJob struct {
	problem *distance.Problem
	squared []float64
	slabs   [][2]int
	next    int
	filled  int
}

// Labels decodes a 3D scene into foreground flags: set bits, or non-zero
// samples for 8 and 16 bit data.
func Labels(d *models.VolumeDescriptor, data []byte) ([]bool, error) {
	if d.Volumes() != 1 {
		return nil, fmt.Errorf("distance maps need a single volume, scene has %d", d.Volumes())
	}
	if len(data) != d.BytesPerSlice()*d.SlicesPerVolume[0] {
		return nil, fmt.Errorf("have %d bytes of samples, want %d", len(data), d.BytesPerSlice()*d.SlicesPerVolume[0])
	}
	n := d.Width * d.Height * d.SlicesPerVolume[0]
	switch d.BitDepth {
	case models.Bits1:
		per := d.BytesPerSlice()
		slice := d.Width * d.Height
		out := make([]bool, 0, n)
		for z := 0; z < d.SlicesPerVolume[0]; z++ {
			out = append(out, models.UnpackBits(data[z*per:(z+1)*per], slice)...)
		}
		return out, nil
	case models.Bits8:
		out := make([]bool, n)
		for i := range out {
			out[i] = data[i] != 0
		}
		return out, nil
	case models.Bits16:
		out := make([]bool, n)
		for i := range out {
			out[i] = data[2*i] != 0 || data[2*i+1] != 0
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported bit depth %d", d.BitDepth)
}

// NewDistanceJob prepares the feature voxels and partitions them into
// slabs. The last slab takes the slices left over by the even split.
func NewDistanceJob(labels []bool, g models.Grid3, sp distance.Spacing, kind distance.Kind, slabs int) (*DistanceJob, error) {
	p, err := distance.Prepare(labels, g, sp, kind)
	if err != nil {
		return nil, err
	}
	nz := p.Grid.Z
	if slabs < 1 {
		slabs = 1
	}
	if slabs > nz {
		slabs = nz
	}
	per := nz / slabs
	j := &DistanceJob{problem: p, squared: make([]float64, p.Grid.Len())}
	for i := 0; i < slabs; i++ {
		first, end := i*per, (i+1)*per
		if i == slabs-1 {
			end = nz
		}
		j.slabs = append(j.slabs, [2]int{first, end})
	}
	return j, nil
}

func (j *DistanceJob) Units() int {
	return len(j.slabs)
}

func (j *DistanceJob) Next() (*wire.WorkUnit, error) {
	if j.next >= len(j.slabs) {
		return nil, nil
	}
	s := j.slabs[j.next]
	j.next++
	g := j.problem.Grid
	mask := make([]byte, (s[1]-s[0])*g.SliceLen())
	for i, f := range j.problem.Features[s[0]*g.SliceLen() : s[1]*g.SliceLen()] {
		if f {
			mask[i] = 1
		}
	}
	return &wire.WorkUnit{
		Op:        wire.OpDistanceSlab,
		InCount:   [2]int{g.X, g.Y},
		InPitch:   [2]float64{j.problem.Spacing.X, j.problem.Spacing.Y},
		OutFirstZ: s[0],
		SlabDepth: s[1] - s[0],
		Payload:   mask,
	}, nil
}

func (j *DistanceJob) Merge(r *wire.ResultUnit) error {
	g := j.problem.Grid
	if r.OutFirstZ < 0 || r.SliceCount <= 0 || r.OutFirstZ+r.SliceCount > g.Z {
		return fmt.Errorf("slab %d+%d outside %d slices", r.OutFirstZ, r.SliceCount, g.Z)
	}
	start := r.OutFirstZ * g.SliceLen()
	dst := j.squared[start : start+r.SliceCount*g.SliceLen()]
	if err := wire.DecodeFloats(dst, r.Payload); err != nil {
		return fmt.Errorf("slab at z=%d: %w", r.OutFirstZ, err)
	}
	j.filled += r.SliceCount
	return nil
}

// Field runs the z pass and returns the signed distances on the input
// grid, in physical units (input voxels for double resolution).
func (j *DistanceJob) Field() ([]float64, error) {
	if j.filled != j.problem.Grid.Z {
		return nil, fmt.Errorf("only %d of %d slices computed", j.filled, j.problem.Grid.Z)
	}
	return j.problem.Finish(j.squared)
}

// QuantizeMagnitude maps |d| to 8 bits, scaling by 255/max when the
// largest magnitude exceeds 255. Fractions are truncated.
func QuantizeMagnitude(field []float64) (out []byte, min, max int64) {
	peak := 0.0
	for _, d := range field {
		peak = math.Max(peak, math.Abs(d))
	}
	out = make([]byte, len(field))
	min, max = math.MaxInt64, math.MinInt64
	for i, d := range field {
		m := math.Abs(d)
		if peak > 255 {
			m = m * 255 / peak
		}
		v := int64(m)
		if v > 255 {
			v = 255
		}
		out[i] = byte(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return out, min, max
}

// WriteNpy stores a field as a NumPy array of shape (z, y, x).
func WriteNpy(path string, field []float64, g models.Grid3) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	w.Shape = []int{g.Z, g.Y, g.X}
	w.Version = 2
	if err := w.WriteFloat64(field); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}
