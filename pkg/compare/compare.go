// Package compare quantifies the agreement between two independently
// produced segmentations of the same case: an automated label volume and
// a manually drawn reference annotation. The two volumes are aligned by
// their stored geometry, the single annotated slice is located, and
// overlap and surface-distance metrics are computed on that slice pair.
package compare

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"segmetrics/internal/models"
	"segmetrics/pkg/morph"
	"segmetrics/pkg/resample"
)

var (
	// ErrEmptyAnnotation reports a reference annotation with no
	// foreground on any slice.
	ErrEmptyAnnotation = errors.New("annotation volume has no annotated slices")

	// ErrSliceOutOfRange reports an annotated slice index beyond the
	// other volume's extent.
	ErrSliceOutOfRange = errors.New("annotated slice index out of range")
)

// GroundTruthSide designates which of the two masks acts as ground
// truth for precision and recall.
type GroundTruthSide int

const (
	// GroundTruthReference treats the manual/reference annotation as
	// ground truth; the automated mask is the prediction. This is the
	// conventional designation.
	GroundTruthReference GroundTruthSide = iota

	// GroundTruthAutomated swaps the roles, which silently swaps
	// precision and recall semantics. Only use when explicitly
	// configured.
	GroundTruthAutomated
)

// Result is the outcome of one slice-level comparison. It is created
// once per invocation and not mutated afterwards.
type Result struct {
	// SliceIndex is the raw index of the compared slice in the
	// automated volume
	SliceIndex int

	// ReferenceArea and AutomatedArea are the two mask areas in cm²
	ReferenceArea float64
	AutomatedArea float64

	// AreaDiff is automated minus reference area; AreaDiffPct is nil
	// when the reference area is zero
	AreaDiff    float64
	AreaDiffAbs float64
	AreaDiffPct *float64

	Dice      float64
	Jaccard   float64
	Precision float64
	Recall    float64

	// Surface distance metrics in mm; +Inf when exactly one mask is
	// empty
	Surface SurfaceMetrics

	// SegmentName is the name of the compared structure or segment
	SegmentName string
}

// Comparator aligns and compares segmentation pairs. Each call to
// Compare mutates no shared state beyond the logger, but the input
// volumes must be private to the call when callers parallelize.
type Comparator struct {
	tolerances  resample.Tolerances
	groundTruth GroundTruthSide
	log         zerolog.Logger
}

// NewComparator creates a comparator with the given geometry-match
// tolerances and ground-truth designation.
func NewComparator(tol resample.Tolerances, groundTruth GroundTruthSide, log zerolog.Logger) *Comparator {
	return &Comparator{
		tolerances:  tol,
		groundTruth: groundTruth,
		log:         log,
	}
}

// AnnotatedSlices returns the indices of all slices with nonzero
// foreground, in ascending order.
func AnnotatedSlices(v *models.Volume) []int {
	var annotated []int
	for z := 0; z < v.Depth; z++ {
		for _, value := range v.Slice(z) {
			if value > 0 {
				annotated = append(annotated, z)
				break
			}
		}
	}
	return annotated
}

// Compare runs the full comparison between an automated label volume
// and a manual reference annotation:
//
//  1. check whether the two grids match (size exactly, spacing within a
//     relative tolerance, origin and direction within absolute
//     tolerances), and resample the reference onto the automated grid
//     when they do not
//  2. locate the annotated slice of the reference; annotations are
//     single-slice by convention, so extra annotated slices produce a
//     warning and only the first is used
//  3. compute overlap, precision/recall, area and surface-distance
//     metrics on that slice pair
//
// Degenerate masks are not errors: empty intersections and unions
// resolve to zero scores, and an empty mask opposite a nonempty one
// yields infinite surface distances.
func (c *Comparator) Compare(automated, reference *models.Volume, segmentName string) (*Result, error) {
	mismatches := resample.Mismatches(automated, reference, c.tolerances)
	if len(mismatches) > 0 {
		c.log.Info().
			Strs("mismatches", mismatches).
			Msg("geometry differs, resampling annotation onto automated grid")
		aligned, err := resample.Resample(reference, automated)
		if err != nil {
			return nil, fmt.Errorf("failed to align annotation: %w", err)
		}
		reference = aligned
	} else {
		c.log.Debug().Msg("geometry matches, no resampling needed")
	}

	annotated := AnnotatedSlices(reference)
	if len(annotated) == 0 {
		return nil, ErrEmptyAnnotation
	}
	if len(annotated) > 1 {
		c.log.Warn().
			Ints("slices", annotated).
			Int("using", annotated[0]).
			Msg("multiple annotated slices found, using the first")
	}
	sliceIndex := annotated[0]

	if sliceIndex >= automated.Depth {
		return nil, fmt.Errorf("%w: slice %d, volume has %d slices",
			ErrSliceOutOfRange, sliceIndex, automated.Depth)
	}

	referenceMask := morph.Binarize(reference.Slice(sliceIndex))
	automatedMask := morph.Binarize(automated.Slice(sliceIndex))

	predicted, groundTruth := automatedMask, referenceMask
	if c.groundTruth == GroundTruthAutomated {
		predicted, groundTruth = referenceMask, automatedMask
	}
	precision, recall := PrecisionRecall(predicted, groundTruth)

	spacingX := automated.Spacing[0]
	spacingY := automated.Spacing[1]

	result := &Result{
		SliceIndex:    sliceIndex,
		ReferenceArea: Area(referenceMask, spacingX, spacingY),
		AutomatedArea: Area(automatedMask, spacingX, spacingY),
		Dice:          Dice(referenceMask, automatedMask),
		Jaccard:       Jaccard(referenceMask, automatedMask),
		Precision:     precision,
		Recall:        recall,
		Surface: ComputeSurfaceMetrics(automatedMask, referenceMask,
			automated.Width, automated.Height, spacingX, spacingY),
		SegmentName: segmentName,
	}

	result.AreaDiff = result.AutomatedArea - result.ReferenceArea
	result.AreaDiffAbs = math.Abs(result.AreaDiff)
	if result.ReferenceArea > 0 {
		pct := result.AreaDiff / result.ReferenceArea * 100
		result.AreaDiffPct = &pct
	}

	return result, nil
}
