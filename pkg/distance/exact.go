package distance

import (
	"fmt"
	"math"

	"ndresample/internal/models"
)

// Kind selects which distances Transform reports.
type Kind int

const (
	// BackgroundToForeground measures background voxels to the object.
	BackgroundToForeground Kind = iota
	// ForegroundToBackground measures object voxels to the background.
	ForegroundToBackground
	// Both measures every voxel: background positive, foreground negative.
	Both
	// DoubleResolution measures every voxel to the label transitions
	// located on a grid of twice the resolution, in input voxel units.
	DoubleResolution
)

func (k Kind) String() string {
	switch k {
	case BackgroundToForeground:
		return "background-to-foreground"
	case ForegroundToBackground:
		return "foreground-to-background"
	case Both:
		return "both"
	case DoubleResolution:
		return "double-resolution"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Spacing gives the physical sample positions along each axis: uniform
// pitches in-plane and explicit slice locations along z.
type Spacing struct {
	X, Y float64
	Z    []float64
}

// Problem is a prepared exact distance transform: the feature voxels on
// the (possibly doubled) working grid and how to turn the squared field
// back into signed distances on the input grid.
type Problem struct {
	Kind     Kind
	Grid     models.Grid3
	Spacing  Spacing
	Features []bool

	input  models.Grid3
	labels []bool
}

// Prepare classifies feature voxels for the requested kind. labels holds
// one entry per voxel of g (x fastest), true for foreground.
func Prepare(labels []bool, g models.Grid3, sp Spacing, kind Kind) (*Problem, error) {
	if len(labels) != g.Len() {
		return nil, fmt.Errorf("label volume has %d voxels, want %d", len(labels), g.Len())
	}
	if len(sp.Z) != g.Z {
		return nil, fmt.Errorf("%d slice locations for %d slices", len(sp.Z), g.Z)
	}
	p := &Problem{Kind: kind, input: g, labels: labels}
	switch kind {
	case BackgroundToForeground:
		p.Grid, p.Spacing = g, sp
		p.Features = boundary(labels, g, true)
	case ForegroundToBackground, Both:
		p.Grid, p.Spacing = g, sp
		p.Features = boundary(labels, g, false)
	case DoubleResolution:
		p.Grid = models.Grid3{X: 2 * g.X, Y: 2 * g.Y, Z: 2 * g.Z}
		p.Spacing = unitSpacing(p.Grid.Z)
		p.Features = transitions(labels, g)
	default:
		return nil, fmt.Errorf("unknown distance kind %d", int(kind))
	}
	return p, nil
}

func unitSpacing(nz int) Spacing {
	z := make([]float64, nz)
	for i := range z {
		z[i] = float64(i)
	}
	return Spacing{X: 1, Y: 1, Z: z}
}

// boundary marks voxels whose label equals side and which have a voxel of
// the opposite label in their 18-neighbourhood.
func boundary(labels []bool, g models.Grid3, side bool) []bool {
	out := make([]bool, g.Len())
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				i := g.Index(x, y, z)
				if labels[i] != side {
					continue
				}
				out[i] = hasOpposite(labels, g, x, y, z, side)
			}
		}
	}
	return out
}

func hasOpposite(labels []bool, g models.Grid3, x, y, z int, side bool) bool {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				// corners are outside the 18-neighbourhood
				if dx != 0 && dy != 0 && dz != 0 {
					continue
				}
				nx, ny, nz := x+dx, y+dy, z+dz
				if !g.Contains(nx, ny, nz) {
					continue
				}
				if labels[g.Index(nx, ny, nz)] != side {
					return true
				}
			}
		}
	}
	return false
}

// transitions marks, on the doubled grid, the midpoint between every pair
// of axis neighbours with different labels.
func transitions(labels []bool, g models.Grid3) []bool {
	fine := models.Grid3{X: 2 * g.X, Y: 2 * g.Y, Z: 2 * g.Z}
	out := make([]bool, fine.Len())
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				v := labels[g.Index(x, y, z)]
				if x+1 < g.X && labels[g.Index(x+1, y, z)] != v {
					out[fine.Index(2*x+1, 2*y, 2*z)] = true
				}
				if y+1 < g.Y && labels[g.Index(x, y+1, z)] != v {
					out[fine.Index(2*x, 2*y+1, 2*z)] = true
				}
				if z+1 < g.Z && labels[g.Index(x, y, z+1)] != v {
					out[fine.Index(2*x, 2*y, 2*z+1)] = true
				}
			}
		}
	}
	return out
}

// Finish runs the z pass over a squared field whose x and y passes are
// done, then takes roots, applies the sign convention of the kind and
// samples back onto the input grid. Voxels with no feature in reach get 0.
func (p *Problem) Finish(squared []float64) ([]float64, error) {
	if len(squared) != p.Grid.Len() {
		return nil, fmt.Errorf("squared field has %d voxels, want %d", len(squared), p.Grid.Len())
	}
	PassZ(squared, p.Grid, p.Spacing.Z)

	out := make([]float64, p.input.Len())
	g := p.input
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				i := g.Index(x, y, z)
				var d float64
				if p.Kind == DoubleResolution {
					d = root(squared[p.Grid.Index(2*x, 2*y, 2*z)]) / 2
				} else {
					d = root(squared[i])
				}
				fg := p.labels[i]
				switch p.Kind {
				case BackgroundToForeground:
					if fg {
						d = 0
					}
				case ForegroundToBackground:
					if !fg {
						d = 0
					}
				default:
					if fg {
						d = -d
					}
				}
				out[i] = d
			}
		}
	}
	return out, nil
}

func root(sq float64) float64 {
	if math.IsInf(sq, 1) {
		return 0
	}
	return math.Sqrt(sq)
}

// Transform computes the exact signed distance field in one process.
func Transform(labels []bool, g models.Grid3, sp Spacing, kind Kind) ([]float64, error) {
	p, err := Prepare(labels, g, sp, kind)
	if err != nil {
		return nil, err
	}
	squared := SlabXY(p.Features, p.Grid, p.Spacing.X, p.Spacing.Y)
	return p.Finish(squared)
}
