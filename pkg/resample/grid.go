package resample

import (
	"fmt"
	"math"
)

// Locations returns first, first+step, ... up to and including last
// (within a small tolerance). Each location is computed from its index so
// every process derives identical values.
func Locations(first, last, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("invalid spacing %g", step)
	}
	if last < first {
		return nil, fmt.Errorf("empty range [%g, %g]", first, last)
	}
	n := int(math.Floor((last-first)/step+1e-6)) + 1
	locs := make([]float64, n)
	for i := range locs {
		locs[i] = first + float64(i)*step
	}
	return locs, nil
}
