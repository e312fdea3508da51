// Package resample aligns one volume onto another volume's grid using the
// stored physical geometry of both (spacing, origin, direction). It uses
// nearest-neighbor interpolation with an identity spatial transform, so
// label volumes keep their integer values; this is registration by
// metadata, not image-based registration.
package resample

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"segmetrics/internal/models"
)

// Tolerances controls how strictly two grids must agree before they are
// considered identical and resampling can be skipped.
type Tolerances struct {
	// SpacingRel is the maximum relative spacing difference per axis
	SpacingRel float64

	// OriginAbs is the maximum absolute origin difference per axis,
	// in physical units
	OriginAbs float64

	// DirectionAbs is the maximum absolute difference per direction
	// cosine entry
	DirectionAbs float64
}

// DefaultTolerances returns the tolerances used by the comparison
// workflow: 1% spacing, 1.0 physical unit origin, 0.01 direction cosine.
func DefaultTolerances() Tolerances {
	return Tolerances{
		SpacingRel:   0.01,
		OriginAbs:    1.0,
		DirectionAbs: 0.01,
	}
}

// Mismatches compares the grids of two volumes and reports a description
// for every geometry property that differs beyond tolerance. An empty
// result means the grids are interchangeable and no resampling is needed.
func Mismatches(a, b *models.Volume, tol Tolerances) []string {
	var mismatches []string

	if a.Width != b.Width || a.Height != b.Height || a.Depth != b.Depth {
		mismatches = append(mismatches, fmt.Sprintf("size (%dx%dx%d vs %dx%dx%d)",
			a.Width, a.Height, a.Depth, b.Width, b.Height, b.Depth))
	}

	for axis := 0; axis < 3; axis++ {
		sa, sb := a.Spacing[axis], b.Spacing[axis]
		if relativeDiff(sa, sb) > tol.SpacingRel {
			mismatches = append(mismatches, fmt.Sprintf("spacing axis %d (%.4f vs %.4f)", axis, sa, sb))
			break
		}
	}

	for axis := 0; axis < 3; axis++ {
		if math.Abs(a.Origin[axis]-b.Origin[axis]) > tol.OriginAbs {
			mismatches = append(mismatches, fmt.Sprintf("origin (%v vs %v)", a.Origin, b.Origin))
			break
		}
	}

	for i := 0; i < 9; i++ {
		if math.Abs(a.Direction[i]-b.Direction[i]) > tol.DirectionAbs {
			mismatches = append(mismatches, "direction cosines")
			break
		}
	}

	return mismatches
}

func relativeDiff(a, b float64) float64 {
	m := math.Max(a, b)
	if m == 0 {
		return 0
	}
	return math.Abs(a-b) / m
}

// Resample maps the source volume onto the reference volume's grid with
// nearest-neighbor interpolation. Voxels of the output grid that fall
// outside the source extent are set to zero. The output volume carries
// the reference geometry.
func Resample(source, reference *models.Volume) (*models.Volume, error) {
	for axis := 0; axis < 3; axis++ {
		if source.Spacing[axis] <= 0 || reference.Spacing[axis] <= 0 {
			return nil, fmt.Errorf("volume has non-positive spacing on axis %d", axis)
		}
	}

	srcDirection := mat.NewDense(3, 3, directionSlice(source))
	var srcInverse mat.Dense
	if err := srcInverse.Inverse(srcDirection); err != nil {
		return nil, fmt.Errorf("source direction matrix is singular: %w", err)
	}

	refDirection := mat.NewDense(3, 3, directionSlice(reference))

	out := models.NewVolume(reference.Width, reference.Height, reference.Depth)
	out.Spacing = reference.Spacing
	out.Origin = reference.Origin
	out.Direction = reference.Direction

	var physical, local mat.VecDense
	index := mat.NewVecDense(3, nil)
	point := mat.NewVecDense(3, nil)

	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				index.SetVec(0, float64(x)*reference.Spacing[0])
				index.SetVec(1, float64(y)*reference.Spacing[1])
				index.SetVec(2, float64(z)*reference.Spacing[2])

				// physical point of the reference voxel
				physical.MulVec(refDirection, index)
				px := physical.AtVec(0) + reference.Origin[0] - source.Origin[0]
				py := physical.AtVec(1) + reference.Origin[1] - source.Origin[1]
				pz := physical.AtVec(2) + reference.Origin[2] - source.Origin[2]

				// continuous index in the source grid
				point.SetVec(0, px)
				point.SetVec(1, py)
				point.SetVec(2, pz)
				local.MulVec(&srcInverse, point)
				sx := int(math.Round(local.AtVec(0) / source.Spacing[0]))
				sy := int(math.Round(local.AtVec(1) / source.Spacing[1]))
				sz := int(math.Round(local.AtVec(2) / source.Spacing[2]))

				if sx < 0 || sx >= source.Width ||
					sy < 0 || sy >= source.Height ||
					sz < 0 || sz >= source.Depth {
					continue
				}
				out.Set(x, y, z, source.At(sx, sy, sz))
			}
		}
	}

	return out, nil
}

func directionSlice(v *models.Volume) []float64 {
	d := make([]float64, 9)
	copy(d, v.Direction[:])
	return d
}
