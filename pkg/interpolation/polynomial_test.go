package interpolation

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/interp"

	"ndresample/internal/models"
)

const tol = 1e-9

// TestLinearEndpoints verifies that linear interpolation reproduces both samples
func TestLinearEndpoints(t *testing.T) {
	samples := [][2]float64{{0, 1}, {-3.5, 7.25}, {1e4, -1e4}, {42, 42}}
	for _, s := range samples {
		v0, err := Interpolate(models.Linear, 0, s[0], s[1], 0, 0, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		v1, err := Interpolate(models.Linear, 1, s[0], s[1], 0, 0, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if v0 != s[0] || v1 != s[1] {
			t.Errorf("Expected endpoints %v, got %v and %v", s, v0, v1)
		}
	}
}

// TestLinearMatchesPiecewiseLinear compares against gonum's reference interpolator
func TestLinearMatchesPiecewiseLinear(t *testing.T) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit([]float64{0, 1}, []float64{-2, 6}); err != nil {
		t.Fatal(err)
	}
	for xi := 0.0; xi <= 1.0; xi += 0.125 {
		got, _ := Interpolate(models.Linear, xi, -2, 6, 0, 0, 1, 1)
		if want := pl.Predict(xi); !scalar.EqualWithinAbs(got, want, tol) {
			t.Errorf("xi=%g: expected %g, got %g", xi, want, got)
		}
	}
}

func TestNearest(t *testing.T) {
	cases := []struct {
		xi   float64
		want float64
	}{
		{0, 10}, {0.49, 10}, {0.5, 20}, {0.99, 20}, {1, 20},
	}
	for _, c := range cases {
		got, _ := Interpolate(models.Nearest, c.xi, 10, 20, 0, 0, 1, 1)
		if got != c.want {
			t.Errorf("xi=%g: expected %g, got %g", c.xi, c.want, got)
		}
	}
}

// catmullRom is the closed-form uniform cubic.
func catmullRom(xi, y0, y1, y2, y3 float64) float64 {
	return 0.5*(((y3-3*y2+3*y1-y0)*xi+(-y3+4*y2-5*y1+2*y0))*xi+(y2-y0))*xi + y1
}

// TestUniformCubicIsCatmullRom verifies the alpha=beta=1 reduction
func TestUniformCubicIsCatmullRom(t *testing.T) {
	ys := [][4]float64{
		{0, 1, 4, 9},
		{3, -1, 2, 8},
		{100, 100, 100, 100},
		{-5, 12.5, 0.25, 7},
	}
	for _, y := range ys {
		for xi := 0.0; xi <= 1.0; xi += 0.1 {
			got, err := Interpolate(models.Cubic, xi, y[0], y[1], y[2], y[3], 1, 1)
			if err != nil {
				t.Fatal(err)
			}
			want := catmullRom(xi, y[0], y[1], y[2], y[3])
			if !scalar.EqualWithinAbs(got, want, tol) {
				t.Errorf("y=%v xi=%g: expected %g, got %g", y, xi, want, got)
			}
		}
	}
}

// TestCubicInterpolatesInterval checks the segment passes through y1 and y2
func TestCubicInterpolatesInterval(t *testing.T) {
	for _, ab := range [][2]float64{{1, 1}, {0.5, 2}, {3, 0.25}} {
		v0, _ := Interpolate(models.Cubic, 0, 1, 2, 5, 3, ab[0], ab[1])
		v1, _ := Interpolate(models.Cubic, 1, 1, 2, 5, 3, ab[0], ab[1])
		if !scalar.EqualWithinAbs(v0, 2, tol) || !scalar.EqualWithinAbs(v1, 5, tol) {
			t.Errorf("alpha,beta=%v: expected 2 and 5, got %g and %g", ab, v0, v1)
		}
	}
}

// TestNonUniformCubicReproducesQuadratics samples a parabola on unequal
// spacing; the kernel must return it exactly.
func TestNonUniformCubicReproducesQuadratics(t *testing.T) {
	f := func(x float64) float64 { return 3*x*x - 2*x + 1 }
	alpha, beta := 0.4, 2.5
	y0, y1, y2, y3 := f(-alpha), f(0), f(1), f(1+beta)
	for xi := 0.0; xi <= 1.0; xi += 0.05 {
		got, err := Interpolate(models.Cubic, xi, y0, y1, y2, y3, alpha, beta)
		if err != nil {
			t.Fatal(err)
		}
		if !scalar.EqualWithinAbs(got, f(xi), 1e-9) {
			t.Errorf("xi=%g: expected %g, got %g", xi, f(xi), got)
		}
	}
}

func TestQuadraticThroughNodes(t *testing.T) {
	alpha, beta := 0.75, 1.5
	y0, y1, y2 := 4.0, -1.0, 2.0
	nodes := []struct{ x, y float64 }{{-alpha, y0}, {0, y1}, {beta, y2}}
	for _, n := range nodes {
		got, err := Interpolate(models.Quadratic, n.x, y0, y1, y2, 0, alpha, beta)
		if err != nil {
			t.Fatal(err)
		}
		if !scalar.EqualWithinAbs(got, n.y, tol) {
			t.Errorf("x=%g: expected %g, got %g", n.x, n.y, got)
		}
	}
}

func TestDegenerateSpacing(t *testing.T) {
	for _, d := range []models.Degree{models.Quadratic, models.Cubic} {
		for _, ab := range [][2]float64{{0, 1}, {1, 0}, {-1, 1}, {1, math.Inf(-1)}} {
			_, err := Interpolate(d, 0.5, 1, 2, 3, 4, ab[0], ab[1])
			if !errors.Is(err, ErrDegenerateSpacing) {
				t.Errorf("%v alpha,beta=%v: expected ErrDegenerateSpacing, got %v", d, ab, err)
			}
		}
	}
	if _, err := Interpolate(models.Degree(5), 0.5, 1, 2, 3, 4, 1, 1); !errors.Is(err, ErrUnsupportedDegree) {
		t.Errorf("Expected ErrUnsupportedDegree, got %v", err)
	}
}

// TestWeightsMatchInterpolate verifies the weight form for every degree
func TestWeightsMatchInterpolate(t *testing.T) {
	y := [4]float64{2, -3, 7, 1.5}
	for _, d := range []models.Degree{models.Nearest, models.Linear, models.Quadratic, models.Cubic} {
		for xi := 0.0; xi <= 1.0; xi += 0.25 {
			w, err := Weights(d, xi, 0.8, 1.3)
			if err != nil {
				t.Fatal(err)
			}
			want, _ := Interpolate(d, xi, y[0], y[1], y[2], y[3], 0.8, 1.3)
			got := w[0]*y[0] + w[1]*y[1] + w[2]*y[2] + w[3]*y[3]
			if !scalar.EqualWithinAbs(got, want, tol) {
				t.Errorf("%v xi=%g: expected %g, got %g", d, xi, want, got)
			}
		}
	}
}

func BenchmarkCubic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Interpolate(models.Cubic, 0.3, 1, 2, 3, 4, 0.8, 1.2)
	}
}
