package resample

import (
	"fmt"

	"ndresample/internal/models"
)

// Source is the run of consecutive input slices of one volume that a unit
// of work carries.
type Source struct {
	// Volume is the index of the input volume
	Volume int

	// Location is the position of the volume along the fourth axis
	Location float64

	// Locations holds the z location of every carried slice
	Locations []float64

	// Slices holds the raw bytes of every carried slice
	Slices [][]byte
}

// CrossSlice evaluates one source at arbitrary z locations, resampling
// each input slice in-plane at most once while the sweep moves forward.
type CrossSlice struct {
	src     *Source
	degree  models.Degree
	inplane *InPlane
	cache   *SliceCache
}

// NewCrossSlice binds a source to the in-plane resampler used for its
// slices.
func NewCrossSlice(src *Source, degree models.Degree, inplane *InPlane) (*CrossSlice, error) {
	if len(src.Locations) == 0 {
		return nil, fmt.Errorf("volume %d: no slices", src.Volume)
	}
	if len(src.Locations) != len(src.Slices) {
		return nil, fmt.Errorf("volume %d: %d locations for %d slices", src.Volume, len(src.Locations), len(src.Slices))
	}
	for i := 1; i < len(src.Locations); i++ {
		if !(src.Locations[i] > src.Locations[i-1]) {
			return nil, fmt.Errorf("volume %d: slice locations not increasing at %d", src.Volume, i)
		}
	}
	return &CrossSlice{src: src, degree: degree, inplane: inplane, cache: NewSliceCache()}, nil
}

func (c *CrossSlice) load(index int) (*Entry, error) {
	p, err := c.inplane.Resample(c.src.Slices[index])
	if err != nil {
		return nil, fmt.Errorf("volume %d slice %d: %w", c.src.Volume, index, err)
	}
	return &Entry{Index: index, Location: c.src.Locations[index], Plane: p}, nil
}

// PlaneAt returns the source interpolated at z on the output pixel grid.
// The returned plane may be shared with the cache and must not be
// modified.
func (c *CrossSlice) PlaneAt(z float64) (*models.Plane, error) {
	s, err := locate(c.src.Locations, z, c.degree)
	if err != nil {
		return nil, fmt.Errorf("volume %d at z=%g: %w", c.src.Volume, z, err)
	}
	planes := make([]*models.Plane, s.taps)
	for k := range planes {
		e, err := c.cache.GetOrCompute(s.first+k, c.load)
		if err != nil {
			return nil, err
		}
		planes[k] = e.Plane
	}
	if s.taps == 1 {
		return planes[0], nil
	}
	return blend(planes, s.weight[:s.taps])
}

// blend returns the weighted sum of equally sized planes.
func blend(planes []*models.Plane, weights []float64) (*models.Plane, error) {
	out, err := models.NewPlane(planes[0].W, planes[0].H)
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		var acc float64
		for k, p := range planes {
			acc += weights[k] * float64(p.Data[i])
		}
		out.Data[i] = float32(acc)
	}
	return out, nil
}
