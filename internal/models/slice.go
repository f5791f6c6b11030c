package models

import (
	"fmt"
)

// Plane is one resampled slice held as float32 samples in row-major order.
type Plane struct {
	// W is the number of columns (x samples)
	W int

	// H is the number of rows (y samples)
	H int

	// Data holds W*H samples, row after row
	Data []float32
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane(w, h int) (*Plane, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid plane size %dx%d", w, h)
	}
	return &Plane{W: w, H: h, Data: make([]float32, w*h)}, nil
}

// Index returns the offset of sample (x, y) in Data. It panics when the
// coordinate is outside the plane, exactly like slice indexing would.
func (p *Plane) Index(x, y int) int {
	if x < 0 || x >= p.W || y < 0 || y >= p.H {
		panic(fmt.Sprintf("plane index (%d,%d) out of range %dx%d", x, y, p.W, p.H))
	}
	return y*p.W + x
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) float32 {
	return p.Data[p.Index(x, y)]
}

// Row returns the samples of row y without copying.
func (p *Plane) Row(y int) []float32 {
	start := p.Index(0, y)
	return p.Data[start : start+p.W]
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	data := make([]float32, len(p.Data))
	copy(data, p.Data)
	return &Plane{W: p.W, H: p.H, Data: data}
}

// Grid3 describes the shape of a dense x-fastest volume.
type Grid3 struct {
	X, Y, Z int
}

// Len is the number of voxels in the grid.
func (g Grid3) Len() int {
	return g.X * g.Y * g.Z
}

// Index returns the linear offset of voxel (x, y, z).
func (g Grid3) Index(x, y, z int) int {
	if x < 0 || x >= g.X || y < 0 || y >= g.Y || z < 0 || z >= g.Z {
		panic(fmt.Sprintf("voxel (%d,%d,%d) out of range %dx%dx%d", x, y, z, g.X, g.Y, g.Z))
	}
	return (z*g.Y+y)*g.X + x
}

// Contains reports whether (x, y, z) lies in the grid.
func (g Grid3) Contains(x, y, z int) bool {
	return x >= 0 && x < g.X && y >= 0 && y < g.Y && z >= 0 && z < g.Z
}

// SliceLen is the number of voxels in one z slice.
func (g Grid3) SliceLen() int {
	return g.X * g.Y
}
