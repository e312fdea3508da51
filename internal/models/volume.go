package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Volume represents a 3D scalar image with its physical geometry.
// CT volumes carry calibrated Hounsfield Units; label volumes carry
// integer labels where nonzero means "structure present".
type Volume struct {
	// Data is the voxel data as a 1D array in row-major order,
	// indexed as z*Width*Height + y*Width + x
	Data []float64

	// Width, Height, Depth are the volume dimensions in voxels
	// (columns, rows, slices)
	Width  int
	Height int
	Depth  int

	// Spacing is the physical voxel size in mm along x, y, z
	Spacing [3]float64

	// Origin is the physical position of voxel (0,0,0)
	Origin [3]float64

	// Direction is the 3x3 orientation matrix in row-major order.
	// Column j is the direction cosine of image axis j.
	Direction [9]float64
}

// NewVolume allocates a zero-filled volume with unit spacing and an
// identity orientation.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:      make([]float64, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		Spacing:   [3]float64{1, 1, 1},
		Origin:    [3]float64{0, 0, 0},
		Direction: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}
}

// At returns the voxel value at (x, y, z). Callers are responsible for
// staying within bounds.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set writes the voxel value at (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Slice returns the raw data of axial slice z as a view into the volume,
// indexed as y*Width + x.
func (v *Volume) Slice(z int) []float64 {
	n := v.Width * v.Height
	return v.Data[z*n : (z+1)*n]
}

// Size returns the dimensions as (width, height, depth).
func (v *Volume) Size() (int, int, int) {
	return v.Width, v.Height, v.Depth
}

// ForegroundCount returns the number of nonzero voxels in the volume.
func (v *Volume) ForegroundCount() int {
	count := 0
	for _, value := range v.Data {
		if value > 0 {
			count++
		}
	}
	return count
}

// VolumeFromAffine builds a volume from a voxel grid plus a 4x4 affine
// matrix mapping voxel indices to physical coordinates. The spacing is
// taken from the magnitude of the diagonal entries, the origin from the
// translation column, and the direction matrix from the upper 3x3 block
// after removing the per-axis spacing scale.
func VolumeFromAffine(data []float64, width, height, depth int, affine *mat.Dense) (*Volume, error) {
	rows, cols := affine.Dims()
	if rows != 4 || cols != 4 {
		return nil, fmt.Errorf("affine must be 4x4, got %dx%d", rows, cols)
	}
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("data length %d does not match dimensions %dx%dx%d",
			len(data), width, height, depth)
	}

	v := &Volume{
		Data:   data,
		Width:  width,
		Height: height,
		Depth:  depth,
	}

	for axis := 0; axis < 3; axis++ {
		v.Spacing[axis] = math.Abs(affine.At(axis, axis))
		v.Origin[axis] = affine.At(axis, 3)
	}

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			scale := math.Abs(affine.At(col, col))
			if scale != 0 {
				v.Direction[row*3+col] = affine.At(row, col) / scale
			} else {
				v.Direction[row*3+col] = 0
			}
		}
	}

	return v, nil
}
