// Package export serializes analysis and comparison results to the CSV
// layout consumed downstream. The layout is a compatibility contract:
// per-slice blocks are emitted with reversed slice numbering (row 1 is
// the last raw slice), numeric fields use fixed decimal precision, and
// undefined values are written as an explicit N/A marker.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"segmetrics/pkg/analysis"
	"segmetrics/pkg/bilateral"
	"segmetrics/pkg/compare"
)

// NotApplicable marks values with no defined numeric result, such as
// infinite surface distances or a percentage with a zero denominator.
const NotApplicable = "N/A"

// WriteStructureCSV writes the full structure table:
//
//	block 1: per-slice area per unmerged structure (cm²)
//	block 2: per-slice mean HU per merged structure
//	block 3: per-slice HU standard deviation per merged structure
//	block 4: per-structure pixel count and volume (cm³)
//	block 5: reconciled per-merged-structure summary with mean HU
//
// Blocks are separated by an empty row. All values are rounded to two
// decimals here and nowhere earlier, so merge arithmetic never compounds
// rounding error.
func WriteStructureCSV(w io.Writer, records []*analysis.StructureRecord,
	merged []bilateral.MergedSeries, summary []bilateral.SummaryRow,
	reconciled []bilateral.MergedSummaryRow) error {

	writer := csv.NewWriter(w)

	maxSlices := 0
	for _, record := range records {
		if len(record.SliceArea) > maxSlices {
			maxSlices = len(record.SliceArea)
		}
	}

	// block 1: areas, structures kept left/right separate
	header := []string{"slicenumber"}
	for _, record := range records {
		header = append(header, record.Name)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i := maxSlices; i >= 1; i-- {
		row := []string{fmt.Sprintf("%d", maxSlices-i+1)}
		for _, record := range records {
			row = append(row, sliceValue(record.SliceArea, i))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	// block 2 and 3: merged intensity series
	for block := 0; block < 2; block++ {
		if err := writer.Write([]string{}); err != nil {
			return err
		}
		header = []string{"slicenumber"}
		for _, series := range merged {
			header = append(header, series.Name)
		}
		if err := writer.Write(header); err != nil {
			return err
		}
		for i := maxSlices; i >= 1; i-- {
			row := []string{fmt.Sprintf("%d", maxSlices-i+1)}
			for _, series := range merged {
				values := series.MeanHU
				if block == 1 {
					values = series.StdHU
				}
				row = append(row, sliceValue(values, i))
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	// block 4: raw per-structure summary
	if err := writer.Write([]string{}); err != nil {
		return err
	}
	if err := writer.Write([]string{"structure", "pixelcount", "volume_cm3"}); err != nil {
		return err
	}
	for _, row := range summary {
		record := []string{row.Structure,
			fmt.Sprintf("%d", row.PixelCount),
			fmt.Sprintf("%.2f", row.VolumeCM3)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	// block 5: reconciled summary with mean HU
	if err := writer.Write([]string{}); err != nil {
		return err
	}
	if err := writer.Write([]string{"structure", "pixelcount", "volume_cm3", "mean_hu"}); err != nil {
		return err
	}
	for _, row := range reconciled {
		record := []string{row.Structure,
			fmt.Sprintf("%d", row.PixelCount),
			fmt.Sprintf("%.2f", row.VolumeCM3),
			fmt.Sprintf("%.2f", row.MeanHU)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// sliceValue formats the value of reversed-order row i (1-based from the
// top of the raw slice stack), padding short series with "0.00".
func sliceValue(values []float64, i int) string {
	if i > len(values) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", values[i-1])
}

// WriteComparisonCSV writes the single-row comparison export. Areas and
// distances carry two decimals, scores four; infinite distances and an
// undefined percentage are written as N/A.
func WriteComparisonCSV(w io.Writer, result *compare.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{
		"slice_number",
		"manual_area_cm2",
		"ai_area_cm2",
		"area_diff_cm2",
		"area_diff_abs_cm2",
		"area_diff_pct",
		"dice_score",
		"jaccard_score",
		"precision",
		"recall",
		"hd_mm",
		"hd95_mm",
		"assd_mm",
	}); err != nil {
		return err
	}

	pct := NotApplicable
	if result.AreaDiffPct != nil {
		pct = fmt.Sprintf("%+.2f%%", *result.AreaDiffPct)
	}

	if err := writer.Write([]string{
		fmt.Sprintf("%d", result.SliceIndex),
		fmt.Sprintf("%.2f", result.ReferenceArea),
		fmt.Sprintf("%.2f", result.AutomatedArea),
		fmt.Sprintf("%+.2f", result.AreaDiff),
		fmt.Sprintf("%.2f", result.AreaDiffAbs),
		pct,
		fmt.Sprintf("%.4f", result.Dice),
		fmt.Sprintf("%.4f", result.Jaccard),
		fmt.Sprintf("%.4f", result.Precision),
		fmt.Sprintf("%.4f", result.Recall),
		formatDistance(result.Surface.HD),
		formatDistance(result.Surface.HD95),
		formatDistance(result.Surface.ASSD),
	}); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func formatDistance(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return NotApplicable
	}
	return fmt.Sprintf("%.2f", value)
}
