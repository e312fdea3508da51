package models

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestVolumeIndexing(t *testing.T) {
	v := NewVolume(3, 4, 2)
	v.Set(2, 3, 1, 42)

	if got := v.At(2, 3, 1); got != 42 {
		t.Errorf("At = %v, want 42", got)
	}
	if got := v.Data[1*12+3*3+2]; got != 42 {
		t.Errorf("flat index: got %v, want 42", got)
	}

	slice := v.Slice(1)
	if len(slice) != 12 {
		t.Fatalf("slice length %d, want 12", len(slice))
	}
	if slice[3*3+2] != 42 {
		t.Errorf("slice view missed the value")
	}

	if w, h, d := v.Size(); w != 3 || h != 4 || d != 2 {
		t.Errorf("Size = %dx%dx%d, want 3x4x2", w, h, d)
	}
}

func TestForegroundCount(t *testing.T) {
	v := NewVolume(2, 2, 2)
	v.Set(0, 0, 0, 1)
	v.Set(1, 1, 1, 2)
	v.Set(0, 1, 0, -5) // negative values are background

	if got := v.ForegroundCount(); got != 2 {
		t.Errorf("ForegroundCount = %d, want 2", got)
	}
}

func TestVolumeFromAffine(t *testing.T) {
	affine := mat.NewDense(4, 4, []float64{
		-0.7, 0, 0, 120,
		0, -0.7, 0, 80,
		0, 0, 3, -50,
		0, 0, 0, 1,
	})

	data := make([]float64, 2*2*2)
	v, err := VolumeFromAffine(data, 2, 2, 2, affine)
	if err != nil {
		t.Fatalf("VolumeFromAffine failed: %v", err)
	}

	if math.Abs(v.Spacing[0]-0.7) > 1e-12 || math.Abs(v.Spacing[1]-0.7) > 1e-12 || v.Spacing[2] != 3 {
		t.Errorf("spacing: got %v, want [0.7 0.7 3]", v.Spacing)
	}
	if v.Origin != [3]float64{120, 80, -50} {
		t.Errorf("origin: got %v, want [120 80 -50]", v.Origin)
	}
	if v.Direction != [9]float64{-1, 0, 0, 0, -1, 0, 0, 0, 1} {
		t.Errorf("direction: got %v, want flipped x and y", v.Direction)
	}
}

func TestVolumeFromAffineValidation(t *testing.T) {
	if _, err := VolumeFromAffine(make([]float64, 8), 2, 2, 2, mat.NewDense(3, 3, nil)); err == nil {
		t.Fatal("expected error for non-4x4 affine")
	}
	if _, err := VolumeFromAffine(make([]float64, 7), 2, 2, 2, mat.NewDense(4, 4, nil)); err == nil {
		t.Fatal("expected error for mismatched data length")
	}
}
