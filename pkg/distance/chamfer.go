// Package distance converts binary data into signed distance fields.
//
// Local computes a fast two-pass raster approximation on one plane; it is
// what the resampler uses to turn a bit plane into something that can be
// interpolated. Transform computes the exact Euclidean distance over a
// whole volume with a separable lower-envelope algorithm.
package distance

import (
	"fmt"
	"math"

	"ndresample/internal/models"
)

const pad = 2

// Local returns the signed distance of every pixel of a w x h binary plane
// to the object boundary. Foreground pixels are positive, background
// pixels negative; no pixel is zero, so thresholding the result at 0
// returns the input exactly. dx and dy are the physical pixel pitches.
func Local(bin []bool, w, h int, dx, dy float64, method models.DistanceMethod) (*models.Plane, error) {
	if len(bin) != w*h {
		return nil, fmt.Errorf("binary plane has %d pixels, want %dx%d", len(bin), w, h)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("invalid pixel pitch %gx%g", dx, dy)
	}

	cols, rows := w+2*pad, h+2*pad
	much := float64(cols)*dx + float64(rows)*dy
	halfX, halfY := dx/2, dy/2
	diag := math.Hypot(dx, dy)

	// Padding is background and never a seed.
	field := make([]float64, cols*rows)
	seed := make([]bool, cols*rows)
	for i := range field {
		field[i] = -much
	}
	inside := func(x, y int) bool {
		return x >= 0 && x < w && y >= 0 && y < h && bin[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fg := bin[y*w+x]
			k := (y+pad)*cols + x + pad

			v := much
			horiz := inside(x-1, y) != fg || inside(x+1, y) != fg
			vert := inside(x, y-1) != fg || inside(x, y+1) != fg
			if horiz || vert {
				seed[k] = true
				switch {
				case horiz && vert:
					v = math.Min(halfX, halfY)
				case horiz:
					v = halfX
				default:
					v = halfY
				}
			}
			if !fg {
				v = -v
			}
			field[k] = v
		}
	}

	type step struct {
		off  int
		dist float64
	}
	var forward, backward []step
	if method == models.Chamfer {
		forward = []step{{-cols - 1, diag}, {-cols, dy}, {-cols + 1, diag}, {-1, dx}}
		backward = []step{{1, dx}, {cols - 1, diag}, {cols, dy}, {cols + 1, diag}}
	} else {
		forward = []step{{-cols, dy}, {-1, dx}}
		backward = []step{{1, dx}, {cols, dy}}
	}

	relax := func(k int, steps []step) {
		v := field[k]
		if v > 0 {
			for _, s := range steps {
				if n := field[k+s.off]; n > 0 && n+s.dist < v {
					v = n + s.dist
				}
			}
		} else {
			for _, s := range steps {
				if n := field[k+s.off]; n < 0 && n-s.dist > v {
					v = n - s.dist
				}
			}
		}
		field[k] = v
	}

	for y := pad; y < h+pad; y++ {
		for x := pad; x < w+pad; x++ {
			if k := y*cols + x; !seed[k] {
				relax(k, forward)
			}
		}
	}
	for y := h + pad - 1; y >= pad; y-- {
		for x := w + pad - 1; x >= pad; x-- {
			if k := y*cols + x; !seed[k] {
				relax(k, backward)
			}
		}
	}

	out, err := models.NewPlane(w, h)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		row := out.Row(y)
		for x := range row {
			row[x] = float32(field[(y+pad)*cols+x+pad])
		}
	}
	return out, nil
}

// Threshold maps a signed field back to a binary plane: positive is
// foreground.
func Threshold(p *models.Plane) []bool {
	out := make([]bool, len(p.Data))
	for i, v := range p.Data {
		out[i] = v > 0
	}
	return out
}
