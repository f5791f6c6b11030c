package resample

import (
	"ndresample/internal/models"
)

// CacheCapacity is the number of resampled input slices kept per source.
// A cubic stencil needs four neighbours, so a forward sweep never
// recomputes a slice.
const CacheCapacity = 4

// Entry is one cached input slice already on the output pixel grid.
type Entry struct {
	Index    int
	Location float64
	Plane    *models.Plane
}

// SliceCache keeps the last few resampled input slices. Lookup is a linear
// scan; when full, the oldest entry is dropped and the others shift down.
type SliceCache struct {
	entries []*Entry
	misses  int
}

// NewSliceCache returns an empty cache.
func NewSliceCache() *SliceCache {
	return &SliceCache{entries: make([]*Entry, 0, CacheCapacity)}
}

// GetOrCompute returns the entry for index, calling compute on a miss.
// Entries are never modified once stored.
func (c *SliceCache) GetOrCompute(index int, compute func(index int) (*Entry, error)) (*Entry, error) {
	for _, e := range c.entries {
		if e.Index == index {
			return e, nil
		}
	}
	e, err := compute(index)
	if err != nil {
		return nil, err
	}
	c.misses++
	if len(c.entries) == CacheCapacity {
		copy(c.entries, c.entries[1:])
		c.entries[CacheCapacity-1] = e
	} else {
		c.entries = append(c.entries, e)
	}
	return e, nil
}

// Len is the number of live entries.
func (c *SliceCache) Len() int {
	return len(c.entries)
}

// Misses counts the computations performed so far.
func (c *SliceCache) Misses() int {
	return c.misses
}
