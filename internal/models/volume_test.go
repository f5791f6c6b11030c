package models

import (
	"errors"
	"testing"
)

// TestNewVolume3D tests construction of a valid single-volume descriptor
func TestNewVolume3D(t *testing.T) {
	locs := []float64{0, 1, 2, 3}
	d, err := NewVolume3D(32, 16, VoxelSize{X: 0.5, Y: 0.5, Z: 1}, locs, Bits16, false)
	if err != nil {
		t.Fatalf("NewVolume3D failed: %v", err)
	}
	if d.BytesPerSlice() != 32*16*2 {
		t.Errorf("Expected %d bytes per slice, got %d", 32*16*2, d.BytesPerSlice())
	}
	if d.TotalSlices() != 4 {
		t.Errorf("Expected 4 slices, got %d", d.TotalSlices())
	}
	if d.Is4D() {
		t.Errorf("Expected a 3D descriptor")
	}
}

func TestBytesPerSliceOneBit(t *testing.T) {
	d, err := NewVolume3D(5, 3, VoxelSize{X: 1, Y: 1, Z: 1}, []float64{0}, Bits1, false)
	if err != nil {
		t.Fatal(err)
	}
	if d.BytesPerSlice() != 2 {
		t.Errorf("Expected 2 bytes for 15 bits, got %d", d.BytesPerSlice())
	}
}

// TestDescriptorValidation tests that invalid descriptors are rejected
func TestDescriptorValidation(t *testing.T) {
	size := VoxelSize{X: 1, Y: 1, Z: 1, T: 1}
	tests := []struct {
		name  string
		build func() error
	}{
		{"zero width", func() error {
			_, err := NewVolume3D(0, 4, size, []float64{0}, Bits8, false)
			return err
		}},
		{"bad depth", func() error {
			_, err := NewVolume3D(4, 4, size, []float64{0}, BitDepth(12), false)
			return err
		}},
		{"signed bits", func() error {
			_, err := NewVolume3D(4, 4, size, []float64{0}, Bits1, true)
			return err
		}},
		{"decreasing slices", func() error {
			_, err := NewVolume3D(4, 4, size, []float64{0, 2, 1}, Bits8, false)
			return err
		}},
		{"duplicate slice", func() error {
			_, err := NewVolume3D(4, 4, size, []float64{0, 1, 1}, Bits8, false)
			return err
		}},
		{"no slices", func() error {
			_, err := NewVolume3D(4, 4, size, nil, Bits8, false)
			return err
		}},
		{"decreasing volumes", func() error {
			_, err := NewVolume4D(4, 4, size, []float64{1, 0}, [][]float64{{0}, {0}}, Bits8, false)
			return err
		}},
		{"volume count mismatch", func() error {
			_, err := NewVolume4D(4, 4, size, []float64{0}, [][]float64{{0}, {0}}, Bits8, false)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestSliceIndex4D(t *testing.T) {
	d, err := NewVolume4D(2, 2, VoxelSize{X: 1, Y: 1, Z: 1, T: 1},
		[]float64{0, 1, 2}, [][]float64{{0, 1}, {0, 1, 2}, {0}}, Bits8, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.SliceIndex(1, 2); got != 4 {
		t.Errorf("Expected global slice 4, got %d", got)
	}
	if got := d.SliceIndex(2, 0); got != 5 {
		t.Errorf("Expected global slice 5, got %d", got)
	}
	if d.DataSize() != 6*4 {
		t.Errorf("Expected %d data bytes, got %d", 6*4, d.DataSize())
	}
}

func TestPlaneIndexPanics(t *testing.T) {
	p, err := NewPlane(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("Expected out of range access to panic")
		}
	}()
	p.At(3, 0)
}

func TestGrid3Index(t *testing.T) {
	g := Grid3{X: 4, Y: 3, Z: 2}
	if g.Index(1, 2, 1) != (1*3+2)*4+1 {
		t.Errorf("Unexpected index %d", g.Index(1, 2, 1))
	}
	if g.Contains(4, 0, 0) {
		t.Errorf("Expected x=4 to be outside the grid")
	}
}

func TestPackBits(t *testing.T) {
	bits := []bool{true, false, false, false, false, false, false, true, true, false, true}
	packed := make([]byte, PackedLen(len(bits)))
	PackBits(packed, bits)
	if packed[0] != 0x81 || packed[1] != 0xA0 {
		t.Errorf("Expected 81 A0, got %02X %02X", packed[0], packed[1])
	}
	back := UnpackBits(packed, len(bits))
	for i := range bits {
		if back[i] != bits[i] {
			t.Errorf("Bit %d: expected %v, got %v", i, bits[i], back[i])
		}
	}
}

func TestParseDegree(t *testing.T) {
	for in, want := range map[int]Degree{0: Nearest, 1: Linear, 2: Cubic, 3: Cubic} {
		got, err := ParseDegree(in)
		if err != nil || got != want {
			t.Errorf("ParseDegree(%d) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDegree(4); err == nil {
		t.Errorf("Expected degree 4 to be rejected")
	}
}

func TestDegreeReach(t *testing.T) {
	for d, want := range map[Degree]int{Nearest: 0, Linear: 0, Quadratic: 0, Cubic: 1} {
		if got := d.Reach(); got != want {
			t.Errorf("%v.Reach() = %d, want %d", d, got, want)
		}
	}
}

func TestWiden(t *testing.T) {
	tests := []struct {
		depth  BitDepth
		signed bool
		raw    []byte
		want   []float64
	}{
		{Bits1, false, []byte{0xA0}, []float64{1, 0, 1}},
		{Bits8, false, []byte{0, 200, 255}, []float64{0, 200, 255}},
		{Bits8, true, []byte{0, 200, 255}, []float64{0, -56, -1}},
		{Bits16, false, []byte{0x01, 0x02, 0xFF, 0xFF}, []float64{258, 65535}},
		{Bits16, true, []byte{0x01, 0x02, 0xFF, 0xFE}, []float64{258, -2}},
	}
	for _, tc := range tests {
		got := make([]float64, len(tc.want))
		Widen(got, tc.raw, tc.depth, tc.signed)
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%v signed=%v sample %d: expected %g, got %g", tc.depth, tc.signed, i, tc.want[i], got[i])
			}
		}
		f32 := make([]float32, len(tc.want))
		Widen(f32, tc.raw, tc.depth, tc.signed)
		if float64(f32[len(f32)-1]) != tc.want[len(tc.want)-1] {
			t.Errorf("%v signed=%v: float32 widening differs", tc.depth, tc.signed)
		}
	}
}
