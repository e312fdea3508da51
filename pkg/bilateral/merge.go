package bilateral

import (
	"math"

	"segmetrics/pkg/analysis"
)

// MergedSeries is the per-slice intensity series of one merged
// structure.
type MergedSeries struct {
	Name   string
	MeanHU []float64
	StdHU  []float64
}

// MergeSeries combines the per-slice intensity statistics of left/right
// structure pairs. The merged mean is the area-weighted mean of the two
// sides at each slice; the merged standard deviation comes from the
// pooled-variance formula, which accounts for the separation between the
// two side means, not just their individual spreads. Slices where the
// combined area is zero yield zero for both. Unpaired structures pass
// through unchanged, and the output preserves the input record order.
func MergeSeries(records []*analysis.StructureRecord, leftSuffix, rightSuffix string) []MergedSeries {
	byName := make(map[string]*analysis.StructureRecord, len(records))
	names := make([]string, 0, len(records))
	for _, record := range records {
		byName[record.Name] = record
		names = append(names, record.Name)
	}

	var merged []MergedSeries
	for _, pairing := range ResolvePairs(names, leftSuffix, rightSuffix) {
		if !pairing.Paired {
			record := byName[pairing.Left]
			merged = append(merged, MergedSeries{
				Name:   pairing.Name,
				MeanHU: append([]float64(nil), record.SliceMeanHU...),
				StdHU:  append([]float64(nil), record.SliceStdHU...),
			})
			continue
		}

		left := byName[pairing.Left]
		right := byName[pairing.Right]
		merged = append(merged, mergePair(pairing.Name, left, right))
	}
	return merged
}

func mergePair(name string, left, right *analysis.StructureRecord) MergedSeries {
	slices := len(left.SliceMeanHU)
	if len(right.SliceMeanHU) < slices {
		slices = len(right.SliceMeanHU)
	}

	series := MergedSeries{
		Name:   name,
		MeanHU: make([]float64, slices),
		StdHU:  make([]float64, slices),
	}

	for i := 0; i < slices; i++ {
		leftArea := left.SliceArea[i]
		rightArea := right.SliceArea[i]
		totalArea := leftArea + rightArea
		if totalArea <= 0 {
			// no structure at this slice on either side
			continue
		}

		mean := (leftArea*left.SliceMeanHU[i] + rightArea*right.SliceMeanHU[i]) / totalArea
		series.MeanHU[i] = mean

		leftDev := left.SliceMeanHU[i] - mean
		rightDev := right.SliceMeanHU[i] - mean
		variance := (leftArea*(left.SliceStdHU[i]*left.SliceStdHU[i]+leftDev*leftDev) +
			rightArea*(right.SliceStdHU[i]*right.SliceStdHU[i]+rightDev*rightDev)) / totalArea
		series.StdHU[i] = math.Sqrt(variance)
	}

	return series
}
