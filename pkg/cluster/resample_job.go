package cluster

import (
	"fmt"
	"math"

	"ndresample/internal/models"
	"ndresample/pkg/resample"
	"ndresample/pkg/scene"
	"ndresample/pkg/wire"
)

// DefaultSlicesPerChunk bounds the input slices of one source volume a
// unit carries when nothing else is configured.
const DefaultSlicesPerChunk = 8

// ResampleParams describes the output grid and how to compute it.
type ResampleParams struct {
	Plan models.InterpolationPlan

	// Pitch holds the output pixel pitch, slice spacing and, for 4D
	// scenes, volume spacing.
	Pitch models.VoxelSize

	// Volumes restricts a 4D output to the input volume index range
	// [Volumes[0], Volumes[1]]. Nil covers every volume.
	Volumes *[2]int

	// SliceRanges optionally gives, per selected volume, the fractional
	// slice index range the output z extent must cover.
	SliceRanges [][2]float64

	// SlicesPerChunk bounds the slices per source volume in one unit.
	SlicesPerChunk int
}

// indexLocation returns the location of a fractional slice index,
// interpolating linearly between neighbouring slices.
func indexLocation(locs []float64, f float64) (float64, error) {
	n := len(locs)
	if f < 0 || f > float64(n-1) {
		return 0, fmt.Errorf("slice index %g outside [0, %d]", f, n-1)
	}
	i := int(math.Floor(f))
	if i >= n-1 {
		return locs[n-1], nil
	}
	return locs[i] + (f-float64(i))*(locs[i+1]-locs[i]), nil
}

// defaultPitch replaces zero pitches with the input's: the pixel pitch
// for x and y, the x pixel pitch for the slice spacing and the smallest
// volume spacing for t.
func defaultPitch(in *models.VolumeDescriptor, p models.VoxelSize) models.VoxelSize {
	if p.X == 0 {
		p.X = in.VoxelSize.X
	}
	if p.Y == 0 {
		p.Y = in.VoxelSize.Y
	}
	if p.Z == 0 {
		p.Z = in.VoxelSize.X
	}
	if p.T == 0 {
		for i := 1; i < len(in.VolumeLocations); i++ {
			d := in.VolumeLocations[i] - in.VolumeLocations[i-1]
			if p.T == 0 || d < p.T {
				p.T = d
			}
		}
	}
	return p
}

// PlanOutput derives the output descriptor from the input and the
// requested grid. Every output volume shares the same slice locations,
// spanning the union of the selected slice ranges. A zero pitch keeps the
// input's.
func PlanOutput(in *models.VolumeDescriptor, p ResampleParams) (*models.VolumeDescriptor, error) {
	if err := p.Plan.Validate(); err != nil {
		return nil, err
	}
	p.Pitch = defaultPitch(in, p.Pitch)
	first, last := 0, in.Volumes()-1
	if p.Volumes != nil {
		first, last = p.Volumes[0], p.Volumes[1]
		if first < 0 || last >= in.Volumes() || last < first {
			return nil, fmt.Errorf("volume range %d..%d outside 0..%d", first, last, in.Volumes()-1)
		}
	}
	if len(p.SliceRanges) > last-first+1 {
		return nil, fmt.Errorf("%d slice ranges for %d volumes", len(p.SliceRanges), last-first+1)
	}

	zMin, zMax := math.Inf(1), math.Inf(-1)
	for v := first; v <= last; v++ {
		locs := in.SliceLocations[v]
		lo, hi := locs[0], locs[len(locs)-1]
		if k := v - first; k < len(p.SliceRanges) {
			r := p.SliceRanges[k]
			if r[1] < r[0] {
				return nil, fmt.Errorf("volume %d: empty slice range %g..%g", v, r[0], r[1])
			}
			var err error
			if lo, err = indexLocation(locs, r[0]); err != nil {
				return nil, fmt.Errorf("volume %d: %w", v, err)
			}
			if hi, err = indexLocation(locs, r[1]); err != nil {
				return nil, fmt.Errorf("volume %d: %w", v, err)
			}
		}
		zMin = math.Min(zMin, lo)
		zMax = math.Max(zMax, hi)
	}
	zs, err := resample.Locations(zMin, zMax, p.Pitch.Z)
	if err != nil {
		return nil, fmt.Errorf("slice axis: %w", err)
	}

	inGeom := resample.Geometry{W: in.Width, H: in.Height, PitchX: in.VoxelSize.X, PitchY: in.VoxelSize.Y}
	if err := inGeom.Validate(); err != nil {
		return nil, err
	}
	if p.Pitch.X <= 0 || p.Pitch.Y <= 0 {
		return nil, fmt.Errorf("invalid output pixel size %gx%g", p.Pitch.X, p.Pitch.Y)
	}
	outGeom := resample.OutputGeometry(inGeom, p.Pitch.X, p.Pitch.Y)
	size := models.VoxelSize{X: p.Pitch.X, Y: p.Pitch.Y, Z: p.Pitch.Z}

	if !in.Is4D() {
		return models.NewVolume3D(outGeom.W, outGeom.H, size, zs, in.BitDepth, in.Signed)
	}
	var ts []float64
	if first == last {
		ts = []float64{in.VolumeLocations[first]}
	} else if ts, err = resample.Locations(in.VolumeLocations[first], in.VolumeLocations[last], p.Pitch.T); err != nil {
		return nil, fmt.Errorf("volume axis: %w", err)
	}
	size.T = p.Pitch.T
	sliceLocs := make([][]float64, len(ts))
	for i := range sliceLocs {
		sliceLocs[i] = append([]float64(nil), zs...)
	}
	return models.NewVolume4D(outGeom.W, outGeom.H, size, ts, sliceLocs, in.BitDepth, in.Signed)
}

// SliceSource reads runs of input slices.
type SliceSource interface {
	Descriptor() *models.VolumeDescriptor
	ReadSlices(volume, first, count int) ([]byte, error)
}

// SliceSink stores runs of output slices.
type SliceSink interface {
	WriteSlices(volume, first int, data []byte) error
}

// span is a run of output slices [first, end) of one output volume with
// the input slice window [lo[k], hi[k]] of each contributing volume.
type span struct {
	volume     int
	first, end int
	sources    []int
	lo, hi     []int
}

// ResampleJob splits the output of a resampling run into units and
// writes their results.
type ResampleJob struct {
	in     *models.VolumeDescriptor
	out    *models.VolumeDescriptor
	plan   models.InterpolationPlan
	src    SliceSource
	sink   SliceSink
	spans  []span
	next   int
	merged []int

	// Min and Max track the range of every merged sample.
	Min, Max int64
}

// NewResampleJob plans the units covering every slice of out.
func NewResampleJob(src SliceSource, sink SliceSink, out *models.VolumeDescriptor, p ResampleParams) (*ResampleJob, error) {
	in := src.Descriptor()
	spc := p.SlicesPerChunk
	if spc <= 0 {
		spc = DefaultSlicesPerChunk
	}
	j := &ResampleJob{
		in:     in,
		out:    out,
		plan:   p.Plan,
		src:    src,
		sink:   sink,
		merged: make([]int, out.Volumes()),
		Min:    math.MaxInt64,
		Max:    math.MinInt64,
	}
	degZ := p.Plan.Degree[models.AxisZ]
	degT := p.Plan.Degree[models.AxisT]
	for ov, t := range out.VolumeLocations {
		zs := out.SliceLocations[ov]
		tlo, thi := resample.Window(in.VolumeLocations, []float64{t}, degT)
		var sources []int
		for v := tlo; v <= thi; v++ {
			sources = append(sources, v)
		}

		// per output slice, the window each source needs for it alone;
		// both ends are non-decreasing in z
		lo := make([][]int, len(sources))
		hi := make([][]int, len(sources))
		for k, v := range sources {
			lo[k] = make([]int, len(zs))
			hi[k] = make([]int, len(zs))
			for i, z := range zs {
				lo[k][i], hi[k][i] = resample.Window(in.SliceLocations[v], []float64{z}, degZ)
			}
		}

		for first := 0; first < len(zs); {
			end := first + 1
			for end < len(zs) && fits(lo, hi, first, end, spc) {
				end++
			}
			s := span{volume: ov, first: first, end: end, sources: sources}
			for k := range sources {
				s.lo = append(s.lo, lo[k][first])
				s.hi = append(s.hi, hi[k][end-1])
			}
			j.spans = append(j.spans, s)
			first = end
		}
	}
	return j, nil
}

// fits reports whether output slices [first, end] together need at most
// spc slices of every source.
func fits(lo, hi [][]int, first, end, spc int) bool {
	for k := range lo {
		if hi[k][end]-lo[k][first]+1 > spc {
			return false
		}
	}
	return true
}

func (j *ResampleJob) Units() int {
	return len(j.spans)
}

// Next reads the input slices of the next span into a unit.
func (j *ResampleJob) Next() (*wire.WorkUnit, error) {
	if j.next >= len(j.spans) {
		return nil, nil
	}
	s := j.spans[j.next]
	j.next++

	zs := j.out.SliceLocations[s.volume]
	u := &wire.WorkUnit{
		Op:                wire.OpInterpolate,
		Plan:              j.plan,
		BitDepth:          j.in.BitDepth,
		Signed:            j.in.Signed,
		InCount:           [2]int{j.in.Width, j.in.Height},
		InPitch:           [2]float64{j.in.VoxelSize.X, j.in.VoxelSize.Y},
		OutCount:          [2]int{j.out.Width, j.out.Height},
		OutPitch:          [2]float64{j.out.VoxelSize.X, j.out.VoxelSize.Y},
		OutVolume:         s.volume,
		OutVolumeLocation: j.out.VolumeLocations[s.volume],
		OutFirstZ:         s.first,
		OutZLocations:     zs[s.first:s.end],
	}
	for k, v := range s.sources {
		count := s.hi[k] - s.lo[k] + 1
		data, err := j.src.ReadSlices(v, s.lo[k], count)
		if err != nil {
			return nil, err
		}
		u.Sources = append(u.Sources, wire.SourceChunk{
			Volume:         v,
			VolumeLocation: j.in.VolumeLocations[v],
			FirstSlice:     s.lo[k],
			ZLocations:     j.in.SliceLocations[v][s.lo[k] : s.hi[k]+1],
		})
		u.Payload = append(u.Payload, data...)
	}
	return u, nil
}

// Merge writes a result at its own offset in the output.
func (j *ResampleJob) Merge(r *wire.ResultUnit) error {
	if r.OutVolume < 0 || r.OutVolume >= j.out.Volumes() {
		return fmt.Errorf("result for unknown volume %d", r.OutVolume)
	}
	if want := r.SliceCount * j.out.BytesPerSlice(); len(r.Payload) != want || r.SliceCount == 0 {
		return fmt.Errorf("result of %d slices carries %d bytes, want %d", r.SliceCount, len(r.Payload), want)
	}
	if err := j.sink.WriteSlices(r.OutVolume, r.OutFirstZ, r.Payload); err != nil {
		return err
	}
	j.merged[r.OutVolume] += r.SliceCount
	if r.Min < j.Min {
		j.Min = r.Min
	}
	if r.Max > j.Max {
		j.Max = r.Max
	}
	return nil
}

// Complete reports whether every output slice has been merged.
func (j *ResampleJob) Complete() bool {
	for v, n := range j.merged {
		if n != j.out.SlicesPerVolume[v] {
			return false
		}
	}
	return true
}

var _ SliceSource = (*scene.Reader)(nil)
var _ SliceSink = (*scene.Writer)(nil)
