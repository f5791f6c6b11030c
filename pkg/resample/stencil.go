// Package resample turns input slices into planes on a new grid: in-plane
// resampling, interpolation across slices and volumes, and quantization
// back to the stored sample type.
package resample

import (
	"math"
	"sort"

	"ndresample/internal/models"
	"ndresample/pkg/interpolation"
)

// locationEpsilon is the distance under which an output location is taken
// to coincide with an input sample.
const locationEpsilon = 1e-3

// stencil is the set of input samples contributing to one output sample:
// taps consecutive samples starting at first, combined with weights.
type stencil struct {
	first  int
	taps   int
	weight [4]float64
}

// Bracket returns the largest j with locs[j] <= x, clamped to [0, n-2]
// (0 when there is a single location).
func Bracket(locs []float64, x float64) int {
	n := len(locs)
	if n < 2 {
		return 0
	}
	// first index with locs[i] > x, minus one
	j := sort.Search(n, func(i int) bool { return locs[i] > x }) - 1
	if j < 0 {
		j = 0
	}
	if j > n-2 {
		j = n - 2
	}
	return j
}

// locate builds the stencil that evaluates the samples at locs at x with
// the requested degree. Cubic degrades to the quadratic through three
// samples when one outer neighbour is missing, and to linear when both
// are; positions outside the sampled range take the nearest end sample.
func locate(locs []float64, x float64, degree models.Degree) (stencil, error) {
	n := len(locs)
	if n == 1 {
		return stencil{first: 0, taps: 1, weight: [4]float64{1}}, nil
	}
	j := Bracket(locs, x)
	if math.Abs(locs[j]-x) < locationEpsilon {
		return stencil{first: j, taps: 1, weight: [4]float64{1}}, nil
	}
	if math.Abs(locs[j+1]-x) < locationEpsilon {
		return stencil{first: j + 1, taps: 1, weight: [4]float64{1}}, nil
	}

	h := locs[j+1] - locs[j]
	xi := (x - locs[j]) / h
	if xi < 0 {
		xi = 0
	} else if xi > 1 {
		xi = 1
	}

	if degree == models.Cubic {
		hasLeft, hasRight := j >= 1, j+2 < n
		switch {
		case hasLeft && hasRight:
			alpha := (locs[j] - locs[j-1]) / h
			beta := (locs[j+2] - locs[j+1]) / h
			w, err := interpolation.Weights(models.Cubic, xi, alpha, beta)
			return stencil{first: j - 1, taps: interpolation.Taps(models.Cubic), weight: w}, err
		case hasRight:
			// parabola centred on j+1
			beta := (locs[j+2] - locs[j+1]) / h
			w, err := interpolation.Weights(models.Quadratic, xi-1, 1, beta)
			return stencil{first: j, taps: interpolation.Taps(models.Quadratic), weight: w}, err
		case hasLeft:
			// parabola centred on j
			alpha := (locs[j] - locs[j-1]) / h
			w, err := interpolation.Weights(models.Quadratic, xi, alpha, 1)
			return stencil{first: j - 1, taps: interpolation.Taps(models.Quadratic), weight: w}, err
		}
		degree = models.Linear
	}

	w, err := interpolation.Weights(degree, xi, 1, 1)
	return stencil{first: j, taps: interpolation.Taps(degree), weight: w}, err
}

// Window returns the range of sample indices [lo, hi] needed to evaluate
// every location in xs with the given degree. Work units carry exactly
// this range so that boundary degradation only happens at the true ends
// of the data.
func Window(locs []float64, xs []float64, degree models.Degree) (lo, hi int) {
	reach := degree.Reach()
	n := len(locs)
	lo, hi = n, -1
	for _, x := range xs {
		j := Bracket(locs, x)
		if a := j - reach; a < lo {
			lo = a
		}
		if b := j + 1 + reach; b > hi {
			hi = b
		}
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}
