package bilateral

import (
	"encoding/json"
	"fmt"
	"os"
)

// SummaryRow is the per-structure summary before reconciliation: one row
// per mask file with its total foreground voxel count and volume.
type SummaryRow struct {
	Structure  string
	PixelCount int
	VolumeCM3  float64
}

// MergedSummaryRow is the reconciled structure-level result with the
// externally supplied mean intensity folded in.
type MergedSummaryRow struct {
	Structure  string
	PixelCount int
	VolumeCM3  float64
	MeanHU     float64
}

// IntensityTable maps structure names to an externally computed mean
// intensity. The source is an optional collaborator input, so lookups of
// missing structures deliberately default to zero instead of failing.
type IntensityTable map[string]float64

// Mean returns the mean intensity recorded for the structure, or zero
// when the structure has no entry.
func (t IntensityTable) Mean(structure string) float64 {
	return t[structure]
}

// LoadIntensityTable reads a per-structure statistics JSON file of the
// form {"structure": {"intensity": value, ...}, ...} as produced by the
// external segmentation engine.
func LoadIntensityTable(path string) (IntensityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading statistics file: %w", err)
	}

	var raw map[string]struct {
		Intensity float64 `json:"intensity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing statistics file: %w", err)
	}

	table := make(IntensityTable, len(raw))
	for structure, stats := range raw {
		table[structure] = stats.Intensity
	}
	return table, nil
}

// Reconcile folds the external intensity table into the per-structure
// summary and merges left/right pairs with the same pairing rule the
// slice merger uses. Pixel counts and volumes sum across a pair; the
// mean intensity is pixelcount-weighted, or zero when the combined count
// is zero. Row order follows the insertion order of first encounter.
func Reconcile(rows []SummaryRow, intensity IntensityTable, leftSuffix, rightSuffix string) []MergedSummaryRow {
	byName := make(map[string]SummaryRow, len(rows))
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		byName[row.Structure] = row
		names = append(names, row.Structure)
	}

	var merged []MergedSummaryRow
	for _, pairing := range ResolvePairs(names, leftSuffix, rightSuffix) {
		if !pairing.Paired {
			row := byName[pairing.Left]
			merged = append(merged, MergedSummaryRow{
				Structure:  pairing.Name,
				PixelCount: row.PixelCount,
				VolumeCM3:  row.VolumeCM3,
				MeanHU:     intensity.Mean(row.Structure),
			})
			continue
		}

		left := byName[pairing.Left]
		right := byName[pairing.Right]
		totalPixels := left.PixelCount + right.PixelCount

		meanHU := 0.0
		if totalPixels > 0 {
			meanHU = (float64(left.PixelCount)*intensity.Mean(left.Structure) +
				float64(right.PixelCount)*intensity.Mean(right.Structure)) / float64(totalPixels)
		}

		merged = append(merged, MergedSummaryRow{
			Structure:  pairing.Name,
			PixelCount: totalPixels,
			VolumeCM3:  left.VolumeCM3 + right.VolumeCM3,
			MeanHU:     meanHU,
		})
	}

	return merged
}
