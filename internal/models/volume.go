package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDescriptor is wrapped by every descriptor validation failure.
var ErrInvalidDescriptor = errors.New("invalid volume descriptor")

// BitDepth is the number of bits per stored sample.
type BitDepth int

const (
	Bits1  BitDepth = 1
	Bits8  BitDepth = 8
	Bits16 BitDepth = 16
)

// Valid reports whether the depth is one the engine can read and write.
func (b BitDepth) Valid() bool {
	return b == Bits1 || b == Bits8 || b == Bits16
}

// Range returns the representable sample range.
func (b BitDepth) Range(signed bool) (lo, hi float64) {
	switch {
	case b == Bits1:
		return 0, 1
	case b == Bits8 && signed:
		return math.MinInt8, math.MaxInt8
	case b == Bits8:
		return 0, math.MaxUint8
	case b == Bits16 && signed:
		return math.MinInt16, math.MaxInt16
	default:
		return 0, math.MaxUint16
	}
}

// VoxelSize holds the physical pitch along each axis. Z and T are nominal;
// the actual spacing comes from the location lists.
type VoxelSize struct {
	X, Y, Z, T float64
}

// VolumeDescriptor describes a 3D or 4D scene: in-plane size and pitch,
// per-volume slice locations and the sample encoding.
type VolumeDescriptor struct {
	// Dimensions is 3 for a single volume or 4 for a series of volumes
	Dimensions int

	// Width and Height are the in-plane sample counts
	Width, Height int

	// SlicesPerVolume holds the slice count of every volume
	SlicesPerVolume []int

	// VoxelSize is the pixel pitch and the nominal slice/volume spacing
	VoxelSize VoxelSize

	// SliceLocations holds one strictly increasing list per volume
	SliceLocations [][]float64

	// VolumeLocations holds one strictly increasing location per volume
	VolumeLocations []float64

	// BitDepth is 1, 8 or 16
	BitDepth BitDepth

	// Signed selects two's complement samples for 8 and 16 bit data
	Signed bool
}

// NewVolume3D builds and validates a single-volume descriptor.
func NewVolume3D(width, height int, size VoxelSize, locations []float64, depth BitDepth, signed bool) (*VolumeDescriptor, error) {
	d := &VolumeDescriptor{
		Dimensions:      3,
		Width:           width,
		Height:          height,
		SlicesPerVolume: []int{len(locations)},
		VoxelSize:       size,
		SliceLocations:  [][]float64{locations},
		VolumeLocations: []float64{0},
		BitDepth:        depth,
		Signed:          signed,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewVolume4D builds and validates a multi-volume descriptor.
func NewVolume4D(width, height int, size VoxelSize, volumeLocations []float64, sliceLocations [][]float64, depth BitDepth, signed bool) (*VolumeDescriptor, error) {
	counts := make([]int, len(sliceLocations))
	for i, locs := range sliceLocations {
		counts[i] = len(locs)
	}
	d := &VolumeDescriptor{
		Dimensions:      4,
		Width:           width,
		Height:          height,
		SlicesPerVolume: counts,
		VoxelSize:       size,
		SliceLocations:  sliceLocations,
		VolumeLocations: volumeLocations,
		BitDepth:        depth,
		Signed:          signed,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks every structural invariant of the descriptor.
func (d *VolumeDescriptor) Validate() error {
	if d.Dimensions != 3 && d.Dimensions != 4 {
		return fmt.Errorf("%w: dimensions %d", ErrInvalidDescriptor, d.Dimensions)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: in-plane size %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if !d.BitDepth.Valid() {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidDescriptor, d.BitDepth)
	}
	if d.BitDepth == Bits1 && d.Signed {
		return fmt.Errorf("%w: 1-bit data cannot be signed", ErrInvalidDescriptor)
	}
	if d.VoxelSize.X <= 0 || d.VoxelSize.Y <= 0 {
		return fmt.Errorf("%w: pixel size %gx%g", ErrInvalidDescriptor, d.VoxelSize.X, d.VoxelSize.Y)
	}
	n := len(d.SlicesPerVolume)
	if n == 0 {
		return fmt.Errorf("%w: no volumes", ErrInvalidDescriptor)
	}
	if d.Dimensions == 3 && n != 1 {
		return fmt.Errorf("%w: 3D scene with %d volumes", ErrInvalidDescriptor, n)
	}
	if len(d.SliceLocations) != n || len(d.VolumeLocations) != n {
		return fmt.Errorf("%w: %d volumes but %d slice lists and %d volume locations",
			ErrInvalidDescriptor, n, len(d.SliceLocations), len(d.VolumeLocations))
	}
	if !strictlyIncreasing(d.VolumeLocations) {
		return fmt.Errorf("%w: volume locations not strictly increasing", ErrInvalidDescriptor)
	}
	for v, count := range d.SlicesPerVolume {
		if count <= 0 {
			return fmt.Errorf("%w: volume %d has no slices", ErrInvalidDescriptor, v)
		}
		if len(d.SliceLocations[v]) != count {
			return fmt.Errorf("%w: volume %d has %d slices but %d locations",
				ErrInvalidDescriptor, v, count, len(d.SliceLocations[v]))
		}
		if !strictlyIncreasing(d.SliceLocations[v]) {
			return fmt.Errorf("%w: slice locations of volume %d not strictly increasing", ErrInvalidDescriptor, v)
		}
	}
	return nil
}

func strictlyIncreasing(locs []float64) bool {
	for i := 1; i < len(locs); i++ {
		if !(locs[i] > locs[i-1]) {
			return false
		}
	}
	return true
}

// Volumes is the number of volumes (1 for 3D scenes).
func (d *VolumeDescriptor) Volumes() int {
	return len(d.SlicesPerVolume)
}

// Is4D reports whether the scene has a volume axis.
func (d *VolumeDescriptor) Is4D() bool {
	return d.Dimensions == 4
}

// BytesPerSlice is the stored size of one slice.
func (d *VolumeDescriptor) BytesPerSlice() int {
	return (d.Width*d.Height*int(d.BitDepth) + 7) / 8
}

// TotalSlices is the number of slices over all volumes.
func (d *VolumeDescriptor) TotalSlices() int {
	total := 0
	for _, n := range d.SlicesPerVolume {
		total += n
	}
	return total
}

// SliceIndex returns the global, volume-major number of slice z of volume v.
func (d *VolumeDescriptor) SliceIndex(v, z int) int {
	if v < 0 || v >= d.Volumes() || z < 0 || z >= d.SlicesPerVolume[v] {
		panic(fmt.Sprintf("slice (%d,%d) out of range", v, z))
	}
	idx := z
	for i := 0; i < v; i++ {
		idx += d.SlicesPerVolume[i]
	}
	return idx
}

// DataSize is the number of bytes of raw sample data.
func (d *VolumeDescriptor) DataSize() int64 {
	return int64(d.TotalSlices()) * int64(d.BytesPerSlice())
}

// Clone returns a deep copy of the descriptor.
func (d *VolumeDescriptor) Clone() *VolumeDescriptor {
	c := *d
	c.SlicesPerVolume = append([]int(nil), d.SlicesPerVolume...)
	c.VolumeLocations = append([]float64(nil), d.VolumeLocations...)
	c.SliceLocations = make([][]float64, len(d.SliceLocations))
	for i, locs := range d.SliceLocations {
		c.SliceLocations[i] = append([]float64(nil), locs...)
	}
	return &c
}
