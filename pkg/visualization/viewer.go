// Package visualization exports orthogonal slices of a scene as images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"ndresample/internal/models"
	"ndresample/pkg/scene"
)

// Viewer holds one volume of a scene as gray levels.
type Viewer struct {
	// values holds the samples of the volume, x fastest
	values []float64

	width  int
	height int
	depth  int

	// aspect is the nominal slice spacing over the pixel pitch; x and y
	// slices are stretched by it along z
	aspect float64

	lo, hi float64
}

// NewViewer decodes volume v of a scene. The gray window spans the
// sample range recorded in the header, or the data range when the header
// has none.
func NewViewer(h scene.Header, data []byte, v int) (*Viewer, error) {
	d := h.Descriptor
	if v < 0 || v >= d.Volumes() {
		return nil, fmt.Errorf("volume %d outside 0..%d", v, d.Volumes()-1)
	}
	per := d.BytesPerSlice()
	start := d.SliceIndex(v, 0) * per
	n := d.SlicesPerVolume[v]
	if len(data) < start+n*per {
		return nil, fmt.Errorf("have %d bytes, volume %d needs %d", len(data), v, start+n*per)
	}
	vw := &Viewer{
		values: decode(d, data[start:start+n*per], n),
		width:  d.Width,
		height: d.Height,
		depth:  n,
		aspect: 1,
	}
	if d.VoxelSize.Z > 0 && d.VoxelSize.X > 0 {
		vw.aspect = d.VoxelSize.Z / d.VoxelSize.X
	}

	vw.lo, vw.hi = float64(h.Min), float64(h.Max)
	if !(vw.hi > vw.lo) {
		vw.lo, vw.hi = math.Inf(1), math.Inf(-1)
		for _, s := range vw.values {
			vw.lo = math.Min(vw.lo, s)
			vw.hi = math.Max(vw.hi, s)
		}
	}
	return vw, nil
}

// OpenViewer reads a scene file and views one of its volumes.
func OpenViewer(path string, v int) (*Viewer, error) {
	h, data, err := scene.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewViewer(h, data, v)
}

func decode(d *models.VolumeDescriptor, raw []byte, slices int) []float64 {
	n := d.Width * d.Height
	per := d.BytesPerSlice()
	out := make([]float64, n*slices)
	for z := 0; z < slices; z++ {
		models.Widen(out[z*n:(z+1)*n], raw[z*per:(z+1)*per], d.BitDepth, d.Signed)
	}
	return out
}

func (v *Viewer) gray(idx int) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	s := (v.values[idx] - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, s*65535)))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
// Slices along x and y are stretched along z to the physical slice spacing.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, v.gray(z*v.width*v.height+y*v.width+position))
			}
		}
		return v.stretch(img, true), nil

	case "y", "Y":
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, v.gray(z*v.width*v.height+position*v.width+x))
			}
		}
		return v.stretch(img, false), nil

	case "z", "Z":
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, v.gray(position*v.width*v.height+y*v.width+x))
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// stretch resizes the z dimension of an image (its width when zAlongX).
func (v *Viewer) stretch(img *image.Gray16, zAlongX bool) image.Image {
	if math.Abs(v.aspect-1) < 1e-6 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if zAlongX {
		w = int(math.Max(1, math.Round(float64(w)*v.aspect)))
	} else {
		h = int(math.Max(1, math.Round(float64(h)*v.aspect)))
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// SaveSlice saves an extracted slice; the format follows the file
// extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return imaging.Save(img, filename, imaging.JPEGQuality(90))
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis, outputDir, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if format == "" {
		format = "png"
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
