// Package interpolation provides the 1D polynomial kernels used for
// in-plane, cross-slice and cross-volume resampling.
//
// Every kernel evaluates a polynomial through up to four samples y0..y3
// at a fractional position xi. For the quadratic and cubic kernels the
// samples need not be equally spaced: alpha and beta give the spacing of
// the outer samples relative to the central interval.
package interpolation

import (
	"errors"
	"fmt"

	"ndresample/internal/models"
)

var (
	// ErrDegenerateSpacing is returned when alpha or beta is not positive.
	ErrDegenerateSpacing = errors.New("degenerate sample spacing")

	// ErrUnsupportedDegree is returned for degrees other than 0 to 3.
	ErrUnsupportedDegree = errors.New("unsupported interpolation degree")
)

// Interpolate evaluates the interpolant of the given degree at xi.
//
//   - Nearest: y0 when xi < 0.5, y1 otherwise.
//   - Linear: the chord from (0,y0) to (1,y1).
//   - Quadratic: the parabola through (-alpha,y0), (0,y1), (beta,y2).
//   - Cubic: the segment between (0,y1) and (1,y2), with y0 at -alpha and
//     y3 at 1+beta. Its end slopes are those of the parabolas through the
//     three samples around each end, so alpha = beta = 1 gives the
//     Catmull-Rom spline.
func Interpolate(degree models.Degree, xi, y0, y1, y2, y3, alpha, beta float64) (float64, error) {
	switch degree {
	case models.Nearest:
		if xi < 0.5 {
			return y0, nil
		}
		return y1, nil
	case models.Linear:
		return xi*y1 + (1-xi)*y0, nil
	case models.Quadratic:
		if alpha <= 0 || beta <= 0 {
			return 0, fmt.Errorf("%w: alpha=%g beta=%g", ErrDegenerateSpacing, alpha, beta)
		}
		return quadratic(xi, y0, y1, y2, alpha, beta), nil
	case models.Cubic:
		if alpha <= 0 || beta <= 0 {
			return 0, fmt.Errorf("%w: alpha=%g beta=%g", ErrDegenerateSpacing, alpha, beta)
		}
		return cubic(xi, y0, y1, y2, y3, alpha, beta), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedDegree, int(degree))
}

// quadratic uses the Newton form on the nodes 0, beta, -alpha.
func quadratic(xi, y0, y1, y2, alpha, beta float64) float64 {
	right := (y2 - y1) / beta
	left := (y1 - y0) / alpha
	curvature := (right - left) / (alpha + beta)
	return y1 + right*xi + curvature*xi*(xi-beta)
}

// cubic builds a Hermite segment on [0,1] from the parabola slopes at both
// interval ends.
func cubic(xi, y0, y1, y2, y3, alpha, beta float64) float64 {
	delta := y2 - y1
	// slope at 0 of the parabola through (-alpha,y0), (0,y1), (1,y2)
	m0 := (alpha*delta + (y1-y0)/alpha) / (alpha + 1)
	// slope at 1 of the parabola through (0,y1), (1,y2), (1+beta,y3)
	m1 := ((y3-y2)/beta + beta*delta) / (beta + 1)

	a := m0 + m1 - 2*delta
	b := delta - a - m0
	return ((a*xi+b)*xi+m0)*xi + y1
}

// Weights returns w such that Interpolate(...) equals
// w[0]*y0 + w[1]*y1 + w[2]*y2 + w[3]*y3 for any samples. Resampling loops
// compute the weights once per output position and reuse them for every
// pixel of a plane.
func Weights(degree models.Degree, xi, alpha, beta float64) ([4]float64, error) {
	var w [4]float64
	for k := 0; k < 4; k++ {
		var y [4]float64
		y[k] = 1
		v, err := Interpolate(degree, xi, y[0], y[1], y[2], y[3], alpha, beta)
		if err != nil {
			return w, err
		}
		w[k] = v
	}
	return w, nil
}

// Taps is the number of samples the kernel of a degree reads.
func Taps(degree models.Degree) int {
	switch degree {
	case models.Nearest, models.Linear:
		return 2
	case models.Quadratic:
		return 3
	}
	return 4
}
