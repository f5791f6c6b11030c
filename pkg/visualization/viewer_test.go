package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"ndresample/internal/models"
	"ndresample/pkg/scene"
)

// testScene builds an 8-bit scene where every z slice holds its index
// times ten.
func testScene(t *testing.T, width, height, depth int, spacing float64) (scene.Header, []byte) {
	locs := make([]float64, depth)
	for i := range locs {
		locs[i] = float64(i) * spacing
	}
	d, err := models.NewVolume3D(width, height, models.VoxelSize{X: 1, Y: 1, Z: spacing}, locs, models.Bits8, false)
	if err != nil {
		t.Fatalf("Failed to build descriptor: %v", err)
	}
	data := make([]byte, d.DataSize())
	for z := 0; z < depth; z++ {
		for i := 0; i < width*height; i++ {
			data[z*width*height+i] = byte(10 * z)
		}
	}
	return scene.Header{Descriptor: d}, data
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	h, data := testScene(t, width, height, depth, 1)
	viewer, err := NewViewer(h, data, 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}
		gray, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		// the window spans 0..40
		want := uint16(float64(z) / 4 * 65535)
		if got := gray.Gray16At(width/2, height/2).Y; got != want {
			t.Errorf("Expected Z slice value %d at center, got %d", want, got)
		}
	}

	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}

	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth+1); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
}

func TestExtractSliceStretchesSpacing(t *testing.T) {
	h, data := testScene(t, 6, 4, 5, 2.5)
	viewer, err := NewViewer(h, data, 0)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}
	img, err := viewer.ExtractSlice("y", 1)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	// 5 slices 2.5 apart at unit pixel pitch
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 13 {
		t.Errorf("Expected 6x13 stretched slice, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNewViewerRejectsBadVolume(t *testing.T) {
	h, data := testScene(t, 4, 4, 2, 1)
	if _, err := NewViewer(h, data, 1); err == nil {
		t.Error("Expected error for missing volume")
	}
	if _, err := NewViewer(h, data[:10], 0); err == nil {
		t.Error("Expected error for short data")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}
	tempDir := t.TempDir()

	width, height, depth := 5, 5, 3
	h, data := testScene(t, width, height, depth, 1)
	path := filepath.Join(tempDir, "scene.scn")
	if err := scene.WriteFile(path, h.Descriptor, data, 0, 20, "test"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	viewer, err := OpenViewer(path, 0)
	if err != nil {
		t.Fatalf("OpenViewer failed: %v", err)
	}

	outputDir := filepath.Join(tempDir, "slices")
	for _, format := range []string{"png", "jpg"} {
		if err := viewer.SaveSliceSequence("z", outputDir, format); err != nil {
			t.Fatalf("Failed to save %s slice sequence: %v", format, err)
		}
		for z := 0; z < depth; z++ {
			filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.%s", z, format))
			if _, err := os.Stat(filename); os.IsNotExist(err) {
				t.Errorf("Expected slice file does not exist: %s", filename)
			}
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir, "png"); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
