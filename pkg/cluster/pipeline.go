package cluster

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"ndresample/internal/models"
	"ndresample/pkg/distance"
	"ndresample/pkg/logging"
	"ndresample/pkg/scene"
)

// RunResample resamples the scene at inPath into a new scene at outPath.
// The output header receives the sample range once every unit is merged.
func RunResample(ctx context.Context, c *Coordinator, inPath, outPath string, p ResampleParams) error {
	r, err := scene.Open(inPath)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := PlanOutput(r.Descriptor(), p)
	if err != nil {
		return err
	}
	logging.Infof("Resampling %dx%d, %d slices to %dx%d, %d slices (%s)\n",
		r.Descriptor().Width, r.Descriptor().Height, r.Descriptor().TotalSlices(),
		out.Width, out.Height, out.TotalSlices(), humanize.Bytes(uint64(out.DataSize())))

	w, err := scene.Create(outPath, out, fmt.Sprintf("resampled from %s", inPath))
	if err != nil {
		return err
	}
	defer w.Close()

	job, err := NewResampleJob(r, w, out, p)
	if err != nil {
		return err
	}
	if _, err := c.Run(ctx, job); err != nil {
		return err
	}
	if !job.Complete() {
		return fmt.Errorf("output %s incomplete", outPath)
	}
	return w.Finalize(job.Min, job.Max)
}

// DistanceParams selects the distance map to compute.
type DistanceParams struct {
	Kind distance.Kind

	// NpyPath, if set, also receives the signed field as a NumPy array.
	NpyPath string
}

// RunDistance computes an 8-bit distance magnitude map of the binary
// scene at inPath.
func RunDistance(ctx context.Context, c *Coordinator, inPath, outPath string, p DistanceParams) error {
	h, data, err := scene.ReadFile(inPath)
	if err != nil {
		return err
	}
	d := h.Descriptor
	labels, err := Labels(d, data)
	if err != nil {
		return err
	}
	g := models.Grid3{X: d.Width, Y: d.Height, Z: d.SlicesPerVolume[0]}
	sp := distance.Spacing{X: d.VoxelSize.X, Y: d.VoxelSize.Y, Z: d.SliceLocations[0]}

	job, err := NewDistanceJob(labels, g, sp, p.Kind, c.Transport.Workers())
	if err != nil {
		return err
	}
	logging.Infof("Distance map (%s) of %dx%dx%d in %d slabs\n", p.Kind, g.X, g.Y, g.Z, job.Units())
	if _, err := c.Run(ctx, job); err != nil {
		return err
	}
	field, err := job.Field()
	if err != nil {
		return err
	}
	if p.NpyPath != "" {
		if err := WriteNpy(p.NpyPath, field, g); err != nil {
			return err
		}
	}

	out := d.Clone()
	out.BitDepth = models.Bits8
	out.Signed = false
	samples, lo, hi := QuantizeMagnitude(field)
	return scene.WriteFile(outPath, out, samples, lo, hi, fmt.Sprintf("%s distance map of %s", p.Kind, inPath))
}
