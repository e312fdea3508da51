// Package analysis computes calibrated per-slice and per-structure
// statistics for a label volume against a co-registered reference CT:
// slice areas in cm², total volume in cm³, and robust per-slice mean and
// standard deviation of the Hounsfield intensities under the mask.
package analysis

import (
	"fmt"

	"segmetrics/internal/models"
	"segmetrics/pkg/morph"
)

// StructureRecord holds the computed metrics for one anatomical
// structure. Records are computed once and not mutated afterwards; the
// bilateral merger consumes them read-only. Values are kept at full
// precision; rounding happens only at export.
type StructureRecord struct {
	// Name is the structure name, usually the mask file base name,
	// including any _left/_right suffix
	Name string

	// SliceArea is the foreground area of each axial slice in cm²
	SliceArea []float64

	// SliceMeanHU and SliceStdHU are the eroded-sample intensity
	// statistics of each axial slice
	SliceMeanHU []float64
	SliceStdHU  []float64

	// PixelCount is the total number of foreground voxels
	PixelCount int

	// VolumeCM3 is the total foreground volume in cm³
	VolumeCM3 float64
}

// Engine computes StructureRecords. The zero value is not usable; create
// instances with NewEngine.
type Engine struct {
	erosionIters int
}

// NewEngine creates an analysis engine with the given erosion iteration
// count for intensity sampling. Seven iterations removes roughly 4.6 mm
// of boundary at typical in-plane spacing, matching the manual
// measurement technique the sampler is calibrated against.
func NewEngine(erosionIters int) *Engine {
	return &Engine{erosionIters: erosionIters}
}

// Analyze computes the per-slice and total metrics of a label volume
// against the reference CT. The mask must already be aligned to the CT
// grid; pass it through resample.Resample first when it came from a
// different geometry.
func (e *Engine) Analyze(name string, mask, ct *models.Volume) (*StructureRecord, error) {
	if mask.Width != ct.Width || mask.Height != ct.Height || mask.Depth != ct.Depth {
		return nil, fmt.Errorf("mask grid %dx%dx%d does not match CT grid %dx%dx%d; resample first",
			mask.Width, mask.Height, mask.Depth, ct.Width, ct.Height, ct.Depth)
	}

	spacingX := ct.Spacing[0]
	spacingY := ct.Spacing[1]
	spacingZ := ct.Spacing[2]

	record := &StructureRecord{
		Name:        name,
		SliceArea:   make([]float64, mask.Depth),
		SliceMeanHU: make([]float64, mask.Depth),
		SliceStdHU:  make([]float64, mask.Depth),
	}

	totalPixels := 0
	for z := 0; z < mask.Depth; z++ {
		sliceMask := morph.Binarize(mask.Slice(z))
		pixels := morph.Count(sliceMask)
		totalPixels += pixels

		// pixel count * in-plane spacing, mm² to cm²
		record.SliceArea[z] = float64(pixels) * spacingX * spacingY / 100

		mean, stddev := SampleIntensity(sliceMask, ct.Slice(z), mask.Width, mask.Height, e.erosionIters)
		record.SliceMeanHU[z] = mean
		record.SliceStdHU[z] = stddev
	}

	record.PixelCount = totalPixels
	// voxel count * voxel volume, mm³ to cm³
	record.VolumeCM3 = float64(totalPixels) * spacingX * spacingY * spacingZ / 1000

	return record, nil
}
