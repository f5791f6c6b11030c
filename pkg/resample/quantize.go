package resample

import (
	"encoding/binary"
	"fmt"
	"math"

	"ndresample/internal/models"
)

// Quantize stores a plane in the destination sample type and returns the
// minimum and maximum stored values. Integer types round half up (+0.5
// then floor) and clamp to the type range; bit planes are thresholded at
// zero and packed eight pixels per byte, most significant bit first.
func Quantize(p *models.Plane, depth models.BitDepth, signed bool, dst []byte) (min, max int64, err error) {
	n := len(p.Data)
	want := (n*int(depth) + 7) / 8
	if len(dst) != want {
		return 0, 0, fmt.Errorf("destination has %d bytes, want %d", len(dst), want)
	}

	if depth == models.Bits1 {
		bits := make([]bool, n)
		min, max = 1, 0
		for i, v := range p.Data {
			bits[i] = v > 0
			b := int64(0)
			if bits[i] {
				b = 1
			}
			if b < min {
				min = b
			}
			if b > max {
				max = b
			}
		}
		models.PackBits(dst, bits)
		return min, max, nil
	}
	if depth != models.Bits8 && depth != models.Bits16 {
		return 0, 0, fmt.Errorf("unsupported bit depth %d", depth)
	}

	lo, hi := depth.Range(signed)
	min, max = math.MaxInt64, math.MinInt64
	for i, v := range p.Data {
		q := math.Floor(float64(v) + 0.5)
		if q < lo || math.IsNaN(q) {
			q = lo
		} else if q > hi {
			q = hi
		}
		s := int64(q)
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
		if depth == models.Bits8 {
			dst[i] = byte(s)
		} else {
			binary.BigEndian.PutUint16(dst[2*i:], uint16(s))
		}
	}
	return min, max, nil
}
