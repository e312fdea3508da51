package compare

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"segmetrics/pkg/morph"
)

// SurfaceMetrics holds the boundary-to-boundary distance metrics of one
// mask pair, in mm. All three are +Inf when exactly one mask is empty
// and 0 when both are.
type SurfaceMetrics struct {
	// HD is the Hausdorff distance: the maximum of the two
	// one-directional maximum distances
	HD float64

	// HD95 is the 95th percentile of the pooled two-directional
	// distance set, robust against single outlier boundary pixels
	HD95 float64

	// ASSD is the average symmetric surface distance: the mean of
	// the pooled set
	ASSD float64
}

// ComputeSurfaceMetrics measures HD, HD95 and ASSD between the
// boundaries of two binary masks on the same grid. Boundaries are
// contour pixels with full connectivity; a mask whose contour comes out
// empty (tiny objects) falls back to using the mask itself as its
// boundary. Distances are pixel-center Euclidean distances scaled by the
// in-plane spacing.
func ComputeSurfaceMetrics(a, b []bool, width, height int, spacingX, spacingY float64) SurfaceMetrics {
	aEmpty := morph.Count(a) == 0
	bEmpty := morph.Count(b) == 0

	if aEmpty && bEmpty {
		return SurfaceMetrics{}
	}
	if aEmpty || bEmpty {
		return SurfaceMetrics{
			HD:   math.Inf(1),
			HD95: math.Inf(1),
			ASSD: math.Inf(1),
		}
	}

	boundaryA := maskBoundary(a, width, height)
	boundaryB := maskBoundary(b, width, height)

	distAToB := oneWayDistances(boundaryA, boundaryB, width, spacingX, spacingY)
	distBToA := oneWayDistances(boundaryB, boundaryA, width, spacingX, spacingY)

	if len(distAToB) == 0 || len(distBToA) == 0 {
		return SurfaceMetrics{
			HD:   math.Inf(1),
			HD95: math.Inf(1),
			ASSD: math.Inf(1),
		}
	}

	pooled := make([]float64, 0, len(distAToB)+len(distBToA))
	pooled = append(pooled, distAToB...)
	pooled = append(pooled, distBToA...)

	return SurfaceMetrics{
		HD:   math.Max(maxOf(distAToB), maxOf(distBToA)),
		HD95: percentile(pooled, 95),
		ASSD: stat.Mean(pooled, nil),
	}
}

func maskBoundary(mask []bool, width, height int) []bool {
	boundary := morph.Boundary(mask, width, height)
	if morph.Count(boundary) == 0 {
		return mask
	}
	return boundary
}

// oneWayDistances returns, for every boundary pixel of from, the
// distance to the nearest boundary pixel of to.
func oneWayDistances(from, to []bool, width int, spacingX, spacingY float64) []float64 {
	fromPoints := morph.Points(from, width)
	toPoints := morph.Points(to, width)
	if len(fromPoints) == 0 || len(toPoints) == 0 {
		return nil
	}

	distances := make([]float64, len(fromPoints))
	for i, p := range fromPoints {
		best := math.Inf(1)
		for _, q := range toPoints {
			dx := float64(p[0]-q[0]) * spacingX
			dy := float64(p[1]-q[1]) * spacingY
			d := dx*dx + dy*dy
			if d < best {
				best = d
			}
		}
		distances[i] = math.Sqrt(best)
	}
	return distances
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// percentile computes the p-th percentile with linear interpolation
// between the two nearest ranks of the sorted sample. This is the
// convention the exported HD95 values are calibrated against.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
