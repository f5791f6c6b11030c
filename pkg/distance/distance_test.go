package distance

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"ndresample/internal/models"
)

func randomLabels(rng *rand.Rand, n int, density float64) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = rng.Float64() < density
	}
	return out
}

// TestLocalThresholdIdempotent verifies that thresholding the local
// distance field at zero returns the binary input exactly
func TestLocalThresholdIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, method := range []models.DistanceMethod{models.CityBlock, models.Chamfer} {
		for trial := 0; trial < 20; trial++ {
			w, h := 1+rng.Intn(40), 1+rng.Intn(40)
			bin := randomLabels(rng, w*h, rng.Float64())
			p, err := Local(bin, w, h, 0.7, 1.3, method)
			if err != nil {
				t.Fatal(err)
			}
			back := Threshold(p)
			for i := range bin {
				if back[i] != bin[i] {
					t.Fatalf("%v %dx%d: pixel %d changed from %v", method, w, h, i, bin[i])
				}
				if p.Data[i] == 0 {
					t.Fatalf("%v: pixel %d has zero distance", method, i)
				}
			}
		}
	}
}

// TestLocalCityBlockProfile checks distances along a single row
func TestLocalCityBlockProfile(t *testing.T) {
	bin := []bool{true, true, true, true, false, false, false, false, false}
	p, err := Local(bin, len(bin), 1, 2, 1, models.CityBlock)
	if err != nil {
		t.Fatal(err)
	}
	// in a single row every object pixel touches the background above
	// and below, so all of them are seeds at half the y pitch
	want := []float32{0.5, 0.5, 0.5, 0.5, -1, -3, -5, -7, -9}
	for i, v := range want {
		if p.Data[i] != v {
			t.Errorf("Pixel %d: expected %g, got %g", i, v, p.Data[i])
		}
	}
}

func TestLocalChamferDiagonal(t *testing.T) {
	// 7x7 background with one foreground pixel in the middle
	w, h := 7, 7
	bin := make([]bool, w*h)
	bin[3*w+3] = true
	p, err := Local(bin, w, h, 1, 1, models.Chamfer)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.At(3, 3); got != 0.5 {
		t.Errorf("Expected centre 0.5, got %g", got)
	}
	// (2,1) is one diagonal step away from the seed at (3,2)
	want := -(0.5 + math.Sqrt2)
	if got := p.At(2, 1); !scalar.EqualWithinAbs(float64(got), want, 1e-6) {
		t.Errorf("Expected %g at (2,1), got %g", want, got)
	}
}

func TestLocalRejectsBadInput(t *testing.T) {
	if _, err := Local(make([]bool, 5), 2, 2, 1, 1, models.Chamfer); err == nil {
		t.Errorf("Expected size mismatch error")
	}
	if _, err := Local(make([]bool, 4), 2, 2, 0, 1, models.Chamfer); err == nil {
		t.Errorf("Expected pitch error")
	}
}

// bruteForce returns the exact signed distance by scanning every feature.
func bruteForce(p *Problem) []float64 {
	g, sp := p.Grid, p.Spacing
	out := make([]float64, g.Len())
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				best := math.Inf(1)
				for fz := 0; fz < g.Z; fz++ {
					for fy := 0; fy < g.Y; fy++ {
						for fx := 0; fx < g.X; fx++ {
							if !p.Features[g.Index(fx, fy, fz)] {
								continue
							}
							ddx := float64(x-fx) * sp.X
							ddy := float64(y-fy) * sp.Y
							ddz := sp.Z[z] - sp.Z[fz]
							if d := ddx*ddx + ddy*ddy + ddz*ddz; d < best {
								best = d
							}
						}
					}
				}
				d := root(best)
				if p.labels[g.Index(x, y, z)] {
					d = -d
				}
				out[g.Index(x, y, z)] = d
			}
		}
	}
	return out
}

// TestTransformMatchesBruteForce compares the separable transform with an
// exhaustive search on anisotropic, non-uniformly spaced volumes
func TestTransformMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 10; trial++ {
		g := models.Grid3{X: 3 + rng.Intn(6), Y: 3 + rng.Intn(6), Z: 2 + rng.Intn(5)}
		z := make([]float64, g.Z)
		for i := 1; i < g.Z; i++ {
			z[i] = z[i-1] + 0.5 + rng.Float64()*2
		}
		sp := Spacing{X: 0.8, Y: 1.1, Z: z}
		labels := randomLabels(rng, g.Len(), 0.4)

		got, err := Transform(labels, g, sp, Both)
		if err != nil {
			t.Fatal(err)
		}
		p, _ := Prepare(labels, g, sp, Both)
		want := bruteForce(p)
		for i := range want {
			if !scalar.EqualWithinAbs(got[i], want[i], 1e-9) {
				t.Fatalf("trial %d voxel %d: expected %g, got %g", trial, i, want[i], got[i])
			}
		}
	}
}

func TestTransformKinds(t *testing.T) {
	// one row: background, background, object, object, background
	labels := []bool{false, false, true, true, false}
	g := models.Grid3{X: 5, Y: 1, Z: 1}
	sp := Spacing{X: 1, Y: 1, Z: []float64{0}}

	bg, err := Transform(labels, g, sp, BackgroundToForeground)
	if err != nil {
		t.Fatal(err)
	}
	wantBg := []float64{2, 1, 0, 0, 1}
	fg, _ := Transform(labels, g, sp, ForegroundToBackground)
	wantFg := []float64{0, 0, 1, 1, 0}
	for i := range labels {
		if bg[i] != wantBg[i] {
			t.Errorf("background-to-foreground voxel %d: expected %g, got %g", i, wantBg[i], bg[i])
		}
		if fg[i] != wantFg[i] {
			t.Errorf("foreground-to-background voxel %d: expected %g, got %g", i, wantFg[i], fg[i])
		}
	}
}

func TestDoubleResolution(t *testing.T) {
	labels := []bool{false, false, true, true}
	g := models.Grid3{X: 4, Y: 1, Z: 1}
	got, err := Transform(labels, g, Spacing{X: 1, Y: 1, Z: []float64{0}}, DoubleResolution)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.5, 0.5, -0.5, -1.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Voxel %d: expected %g, got %g", i, want[i], got[i])
		}
	}
}

// TestSlabDecomposition verifies that slabs processed separately and then
// finished together equal the single-process transform
func TestSlabDecomposition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := models.Grid3{X: 9, Y: 7, Z: 10}
	sp := Spacing{X: 1, Y: 0.5, Z: uniform(g.Z, 2)}
	labels := randomLabels(rng, g.Len(), 0.3)

	p, err := Prepare(labels, g, sp, Both)
	if err != nil {
		t.Fatal(err)
	}
	assembled := make([]float64, 0, g.Len())
	for first := 0; first < g.Z; first += 3 {
		depth := 3
		if first+depth > g.Z {
			depth = g.Z - first
		}
		slab := models.Grid3{X: g.X, Y: g.Y, Z: depth}
		lo := first * g.SliceLen()
		assembled = append(assembled, SlabXY(p.Features[lo:lo+slab.Len()], slab, sp.X, sp.Y)...)
	}
	got, err := p.Finish(assembled)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Transform(labels, g, sp, Both)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Voxel %d: expected %g, got %g", i, want[i], got[i])
		}
	}
}

func TestTransformNoFeatures(t *testing.T) {
	g := models.Grid3{X: 3, Y: 3, Z: 2}
	got, err := Transform(make([]bool, g.Len()), g, Spacing{X: 1, Y: 1, Z: []float64{0, 1}}, Both)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("Voxel %d: expected 0 without any object, got %g", i, v)
		}
	}
}
