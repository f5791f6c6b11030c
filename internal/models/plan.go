package models

import (
	"fmt"
)

// Degree is the polynomial degree of an interpolant.
type Degree int

const (
	Nearest   Degree = 0
	Linear    Degree = 1
	Quadratic Degree = 2
	Cubic     Degree = 3
)

func (d Degree) String() string {
	switch d {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case Cubic:
		return "cubic"
	}
	return fmt.Sprintf("degree(%d)", int(d))
}

// ParseDegree maps a command-line degree to a Degree. Both 2 and 3 select
// cubic; quadratic is never requested, only reached by degradation.
func ParseDegree(v int) (Degree, error) {
	switch v {
	case 0:
		return Nearest, nil
	case 1:
		return Linear, nil
	case 2, 3:
		return Cubic, nil
	}
	return 0, fmt.Errorf("unsupported interpolation degree %d", v)
}

// DistanceMethod selects the local distance metric used on 1-bit input.
type DistanceMethod int

const (
	CityBlock DistanceMethod = iota
	Chamfer
)

func (m DistanceMethod) String() string {
	if m == Chamfer {
		return "chamfer"
	}
	return "city-block"
}

// Axis indexes the four degrees of a plan.
const (
	AxisX = iota
	AxisY
	AxisZ
	AxisT
)

// InterpolationPlan fixes the kernel degree per axis and the distance
// metric for binary input.
type InterpolationPlan struct {
	Degree   [4]Degree
	Distance DistanceMethod
}

// Validate rejects degrees a user cannot request.
func (p InterpolationPlan) Validate() error {
	for axis, d := range p.Degree {
		if d != Nearest && d != Linear && d != Cubic {
			return fmt.Errorf("axis %d: unsupported degree %v", axis, d)
		}
	}
	if p.Distance != CityBlock && p.Distance != Chamfer {
		return fmt.Errorf("unknown distance method %d", int(p.Distance))
	}
	return nil
}

// Reach is the number of extra samples a kernel reads on each side of the
// bracketing pair: one for cubic, zero otherwise.
func (d Degree) Reach() int {
	if d == Cubic {
		return 1
	}
	return 0
}
