package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"segmetrics/pkg/analysis"
	"segmetrics/pkg/bilateral"
	"segmetrics/pkg/compare"
)

func csvLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestWriteStructureCSV(t *testing.T) {
	records := []*analysis.StructureRecord{
		{Name: "m_left", SliceArea: []float64{1.25, 2.50}},
		{Name: "m_right", SliceArea: []float64{3.00, 4.75}},
		{Name: "spine", SliceArea: []float64{5.50}},
	}
	merged := []bilateral.MergedSeries{
		{Name: "m", MeanHU: []float64{10, 20}, StdHU: []float64{1, 2}},
	}
	summary := []bilateral.SummaryRow{
		{Structure: "m_left", PixelCount: 3, VolumeCM3: 1.234},
		{Structure: "m_right", PixelCount: 4, VolumeCM3: 0.8},
		{Structure: "spine", PixelCount: 9, VolumeCM3: 0.5},
	}
	reconciled := []bilateral.MergedSummaryRow{
		{Structure: "m", PixelCount: 7, VolumeCM3: 2.034, MeanHU: 62.5},
		{Structure: "spine", PixelCount: 9, VolumeCM3: 0.5, MeanHU: 310},
	}

	var buf bytes.Buffer
	if err := WriteStructureCSV(&buf, records, merged, summary, reconciled); err != nil {
		t.Fatalf("WriteStructureCSV failed: %v", err)
	}

	want := []string{
		"slicenumber,m_left,m_right,spine",
		"1,2.50,4.75,0.00",
		"2,1.25,3.00,5.50",
		"",
		"slicenumber,m",
		"1,20.00",
		"2,10.00",
		"",
		"slicenumber,m",
		"1,2.00",
		"2,1.00",
		"",
		"structure,pixelcount,volume_cm3",
		"m_left,3,1.23",
		"m_right,4,0.80",
		"spine,9,0.50",
		"",
		"structure,pixelcount,volume_cm3,mean_hu",
		"m,7,2.03,62.50",
		"spine,9,0.50,310.00",
	}

	lines := csvLines(t, &buf)
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteComparisonCSV(t *testing.T) {
	pct := 25.0
	result := &compare.Result{
		SliceIndex:    42,
		ReferenceArea: 4.0,
		AutomatedArea: 5.0,
		AreaDiff:      1.0,
		AreaDiffAbs:   1.0,
		AreaDiffPct:   &pct,
		Dice:          0.88888,
		Jaccard:       0.8,
		Precision:     0.9,
		Recall:        0.875,
		Surface:       compare.SurfaceMetrics{HD: 3.6, HD95: 3.0, ASSD: 1.5},
	}

	var buf bytes.Buffer
	if err := WriteComparisonCSV(&buf, result); err != nil {
		t.Fatalf("WriteComparisonCSV failed: %v", err)
	}

	lines := csvLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row:\n%s", len(lines), buf.String())
	}
	wantRow := "42,4.00,5.00,+1.00,1.00,+25.00%,0.8889,0.8000,0.9000,0.8750,3.60,3.00,1.50"
	if lines[1] != wantRow {
		t.Errorf("row: got %q, want %q", lines[1], wantRow)
	}
}

func TestWriteComparisonCSVUndefinedValues(t *testing.T) {
	inf := math.Inf(1)
	result := &compare.Result{
		SliceIndex: 0,
		Surface:    compare.SurfaceMetrics{HD: inf, HD95: inf, ASSD: inf},
	}

	var buf bytes.Buffer
	if err := WriteComparisonCSV(&buf, result); err != nil {
		t.Fatalf("WriteComparisonCSV failed: %v", err)
	}

	row := csvLines(t, &buf)[1]
	fields := strings.Split(row, ",")
	if fields[5] != NotApplicable {
		t.Errorf("undefined percentage: got %q, want %q", fields[5], NotApplicable)
	}
	for _, i := range []int{10, 11, 12} {
		if fields[i] != NotApplicable {
			t.Errorf("infinite distance field %d: got %q, want %q", i, fields[i], NotApplicable)
		}
	}
}
