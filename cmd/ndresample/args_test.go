package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ndresample/internal/models"
	"ndresample/pkg/distance"
)

func fixed(four bool) func(string) (bool, error) {
	return func(string) (bool, error) { return four, nil }
}

func TestParseResampleArgs3D(t *testing.T) {
	r, err := parseResampleArgs(strings.Fields("in.scn out.scn 1 0.5 0.5 1.25 1 1 1 3 2.5 7"), fixed(false))
	if err != nil {
		t.Fatalf("parseResampleArgs failed: %v", err)
	}
	if !r.background || r.input != "in.scn" || r.output != "out.scn" {
		t.Errorf("Unexpected header fields %+v", r)
	}
	p := r.params
	if p.Pitch != (models.VoxelSize{X: 0.5, Y: 0.5, Z: 1.25}) {
		t.Errorf("Unexpected pitch %+v", p.Pitch)
	}
	if p.Plan.Distance != models.Chamfer {
		t.Errorf("Expected chamfer, got %v", p.Plan.Distance)
	}
	want := [4]models.Degree{models.Linear, models.Linear, models.Cubic, models.Nearest}
	if p.Plan.Degree != want {
		t.Errorf("Expected degrees %v, got %v", want, p.Plan.Degree)
	}
	if p.Volumes != nil {
		t.Error("Expected no volume range for a 3D scene")
	}
	if len(p.SliceRanges) != 1 || p.SliceRanges[0] != [2]float64{2.5, 7} {
		t.Errorf("Unexpected slice ranges %v", p.SliceRanges)
	}
}

func TestParseResampleArgs4D(t *testing.T) {
	r, err := parseResampleArgs(strings.Fields("in out 0 1 1 1 2 0 1 1 1 0 1 3 0 4 1 5 2 6"), fixed(true))
	if err != nil {
		t.Fatalf("parseResampleArgs failed: %v", err)
	}
	p := r.params
	if p.Pitch.T != 2 || p.Plan.Degree[models.AxisT] != models.Nearest {
		t.Errorf("Unexpected volume axis %v / %v", p.Pitch.T, p.Plan.Degree[models.AxisT])
	}
	if p.Volumes == nil || *p.Volumes != [2]int{1, 3} {
		t.Errorf("Unexpected volume range %v", p.Volumes)
	}
	if len(p.SliceRanges) != 3 {
		t.Errorf("Expected 3 slice ranges, got %v", p.SliceRanges)
	}
}

func TestParseResampleArgsErrors(t *testing.T) {
	cases := []string{
		"in out",
		"in out 2 1 1 1 0 1 1 1",
		"in out 0 1 1 1 5 1 1 1",
		"in out 0 1 1 1 0 1 4 1",
		"in out 0 x 1 1 0 1 1 1",
		"in out 0 1 1 1 0 1 1 1 2",
	}
	for _, c := range cases {
		if _, err := parseResampleArgs(strings.Fields(c), fixed(false)); err == nil {
			t.Errorf("Expected error for %q", c)
		}
	}
}

func TestParseDistanceArgs(t *testing.T) {
	d, err := parseDistanceArgs([]string{"mask.scn", "dist.scn", "0", "3"})
	if err != nil {
		t.Fatalf("parseDistanceArgs failed: %v", err)
	}
	if d.kind != distance.DoubleResolution || d.background {
		t.Errorf("Unexpected result %+v", d)
	}
	if _, err := parseDistanceArgs([]string{"a", "b", "0", "4"}); err == nil {
		t.Error("Expected error for distance type 4")
	}
}

func TestParseResampleArgsZeroPitch(t *testing.T) {
	r, err := parseResampleArgs(strings.Fields("in out 0 0 0 0 0 1 1 1"), fixed(false))
	if err != nil {
		t.Fatalf("parseResampleArgs failed: %v", err)
	}
	if r.params.Pitch != (models.VoxelSize{}) {
		t.Errorf("Expected zero pitches to be passed through, got %+v", r.params.Pitch)
	}
}

func TestExpandArgFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "args.txt")
	content := "1\n0.5\n0.5\n 1.25 \n\n1\n1\n1\n3\n2.5\n7\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write argument file: %v", err)
	}
	args, err := expandArgFile([]string{"in.scn", "out.scn", path})
	if err != nil {
		t.Fatalf("expandArgFile failed: %v", err)
	}
	want := strings.Fields("in.scn out.scn 1 0.5 0.5 1.25 1 1 1 3 2.5 7")
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("Expected %v, got %v", want, args)
	}
	r, err := parseResampleArgs(args, fixed(false))
	if err != nil {
		t.Fatalf("parseResampleArgs failed: %v", err)
	}
	if r.params.Pitch.Z != 1.25 || !r.background {
		t.Errorf("Unexpected result %+v", r.params)
	}

	full := strings.Fields("in out 0 1 1 1 0 1 1 1")
	if got, _ := expandArgFile(full); len(got) != len(full) {
		t.Errorf("Expected long form unchanged, got %v", got)
	}
	if _, err := expandArgFile([]string{"in", "out", filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("Expected error for a missing argument file")
	}
}
