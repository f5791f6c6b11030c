package distance

import (
	"math"

	"ndresample/internal/models"
)

// envelope holds scratch space for the one-dimensional transform
// d(i) = min_k f(k) + (pos(i)-pos(k))^2, computed as the lower envelope
// of the parabolas rooted at every finite f(k).
type envelope struct {
	f, out []float64
	roots  []int
	bounds []float64
}

func newEnvelope(n int) *envelope {
	return &envelope{
		f:      make([]float64, n),
		out:    make([]float64, n),
		roots:  make([]int, n),
		bounds: make([]float64, n+1),
	}
}

// intersect returns the position where the parabolas rooted at q and r
// (pos[r] < pos[q]) cross.
func intersect(f, pos []float64, q, r int) float64 {
	return ((f[q] + pos[q]*pos[q]) - (f[r] + pos[r]*pos[r])) / (2 * (pos[q] - pos[r]))
}

// transform applies the 1D transform to e.f[:len(pos)] into e.out.
func (e *envelope) transform(pos []float64) {
	n := len(pos)
	f, v, z := e.f[:n], e.roots, e.bounds

	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			v[0] = q
			z[0] = math.Inf(-1)
			continue
		}
		s := intersect(f, pos, q, v[k])
		// A parabola is hidden once the new one undercuts it before
		// the left end of its visible interval.
		for s <= z[k] {
			k--
			s = intersect(f, pos, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
	}

	out := e.out[:n]
	if k < 0 {
		for i := range out {
			out[i] = math.Inf(1)
		}
		return
	}
	z[k+1] = math.Inf(1)
	j := 0
	for i := 0; i < n; i++ {
		for z[j+1] < pos[i] {
			j++
		}
		d := pos[i] - pos[v[j]]
		out[i] = d*d + f[v[j]]
	}
}

func uniform(n int, pitch float64) []float64 {
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = float64(i) * pitch
	}
	return pos
}

// SlabXY runs the x and y passes over a block of whole slices. features
// marks the voxels at distance zero. The result holds squared in-plane
// distances (+Inf where a slice has no feature). Slices are independent,
// so a volume can be split into z-slabs processed anywhere.
func SlabXY(features []bool, g models.Grid3, dx, dy float64) []float64 {
	sq := make([]float64, g.Len())
	for i, f := range features {
		if f {
			sq[i] = 0
		} else {
			sq[i] = math.Inf(1)
		}
	}

	xs := uniform(g.X, dx)
	env := newEnvelope(g.X)
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			row := sq[g.Index(0, y, z) : g.Index(0, y, z)+g.X]
			copy(env.f, row)
			env.transform(xs)
			copy(row, env.out[:g.X])
		}
	}

	ys := uniform(g.Y, dy)
	env = newEnvelope(g.Y)
	for z := 0; z < g.Z; z++ {
		for x := 0; x < g.X; x++ {
			for y := 0; y < g.Y; y++ {
				env.f[y] = sq[g.Index(x, y, z)]
			}
			env.transform(ys)
			for y := 0; y < g.Y; y++ {
				sq[g.Index(x, y, z)] = env.out[y]
			}
		}
	}
	return sq
}

// PassZ completes a squared field in place along z using the physical
// slice locations.
func PassZ(sq []float64, g models.Grid3, locations []float64) {
	env := newEnvelope(g.Z)
	for y := 0; y < g.Y; y++ {
		for x := 0; x < g.X; x++ {
			for z := 0; z < g.Z; z++ {
				env.f[z] = sq[g.Index(x, y, z)]
			}
			env.transform(locations)
			for z := 0; z < g.Z; z++ {
				sq[g.Index(x, y, z)] = env.out[z]
			}
		}
	}
}
