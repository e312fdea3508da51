package bilateral

import (
	"math"
	"testing"

	"segmetrics/pkg/analysis"
)

func record(name string, areas, means, stds []float64) *analysis.StructureRecord {
	return &analysis.StructureRecord{
		Name:        name,
		SliceArea:   areas,
		SliceMeanHU: means,
		SliceStdHU:  stds,
	}
}

func TestResolvePairs(t *testing.T) {
	names := []string{"psoas_left", "psoas_right", "iliacus_left", "gluteus_right", "liver"}
	pairings := ResolvePairs(names, "_left", "_right")

	want := []Pairing{
		{Name: "psoas", Left: "psoas_left", Right: "psoas_right", Paired: true},
		{Name: "iliacus_left", Left: "iliacus_left"},
		{Name: "gluteus_right", Left: "gluteus_right"},
		{Name: "liver", Left: "liver"},
	}

	if len(pairings) != len(want) {
		t.Fatalf("got %d pairings, want %d: %v", len(pairings), len(want), pairings)
	}
	for i := range want {
		if pairings[i] != want[i] {
			t.Errorf("pairing %d: got %+v, want %+v", i, pairings[i], want[i])
		}
	}
}

func TestResolvePairsRightBeforeLeft(t *testing.T) {
	// the pair forms regardless of encounter order; it is emitted at
	// the left structure's position
	pairings := ResolvePairs([]string{"psoas_right", "psoas_left"}, "_left", "_right")
	if len(pairings) != 1 || !pairings[0].Paired || pairings[0].Name != "psoas" {
		t.Fatalf("unexpected pairings: %+v", pairings)
	}
}

func TestMergeSeriesEqualAreasGiveArithmeticMean(t *testing.T) {
	records := []*analysis.StructureRecord{
		record("m_left", []float64{5}, []float64{40}, []float64{0}),
		record("m_right", []float64{5}, []float64{60}, []float64{0}),
	}
	merged := MergeSeries(records, "_left", "_right")

	if len(merged) != 1 || merged[0].Name != "m" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if math.Abs(merged[0].MeanHU[0]-50) > 1e-9 {
		t.Errorf("mean: got %v, want 50", merged[0].MeanHU[0])
	}
}

func TestMergeSeriesAreaWeightedMean(t *testing.T) {
	records := []*analysis.StructureRecord{
		record("m_left", []float64{1}, []float64{10}, []float64{0}),
		record("m_right", []float64{3}, []float64{20}, []float64{0}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if math.Abs(merged[0].MeanHU[0]-17.5) > 1e-9 {
		t.Errorf("mean: got %v, want 17.5", merged[0].MeanHU[0])
	}
}

func TestMergeSeriesPooledStdOfIdenticalHalves(t *testing.T) {
	// two halves with the same mean and std pool back to the same std
	records := []*analysis.StructureRecord{
		record("m_left", []float64{4}, []float64{50}, []float64{10}),
		record("m_right", []float64{4}, []float64{50}, []float64{10}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if math.Abs(merged[0].StdHU[0]-10) > 1e-9 {
		t.Errorf("std: got %v, want 10", merged[0].StdHU[0])
	}
}

func TestMergeSeriesPooledStdIncludesMeanSeparation(t *testing.T) {
	// zero within-side spread but separated means: the pooled std is
	// the spread between the two side means
	records := []*analysis.StructureRecord{
		record("m_left", []float64{1}, []float64{0}, []float64{0}),
		record("m_right", []float64{1}, []float64{10}, []float64{0}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if math.Abs(merged[0].MeanHU[0]-5) > 1e-9 {
		t.Errorf("mean: got %v, want 5", merged[0].MeanHU[0])
	}
	if math.Abs(merged[0].StdHU[0]-5) > 1e-9 {
		t.Errorf("std: got %v, want 5", merged[0].StdHU[0])
	}
}

func TestMergeSeriesZeroCombinedArea(t *testing.T) {
	records := []*analysis.StructureRecord{
		record("m_left", []float64{0, 2}, []float64{0, 30}, []float64{0, 1}),
		record("m_right", []float64{0, 2}, []float64{0, 50}, []float64{0, 1}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if merged[0].MeanHU[0] != 0 || merged[0].StdHU[0] != 0 {
		t.Errorf("zero-area slice must merge to zeros, got mean %v std %v",
			merged[0].MeanHU[0], merged[0].StdHU[0])
	}
	if math.Abs(merged[0].MeanHU[1]-40) > 1e-9 {
		t.Errorf("slice 1 mean: got %v, want 40", merged[0].MeanHU[1])
	}
}

func TestMergeSeriesUnpairedPassThrough(t *testing.T) {
	records := []*analysis.StructureRecord{
		record("spine", []float64{1}, []float64{300}, []float64{25}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if len(merged) != 1 || merged[0].Name != "spine" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if merged[0].MeanHU[0] != 300 || merged[0].StdHU[0] != 25 {
		t.Errorf("pass-through must not alter values: %+v", merged[0])
	}
}

func TestMergeSeriesPreservesOrder(t *testing.T) {
	records := []*analysis.StructureRecord{
		record("b_left", []float64{1}, []float64{1}, []float64{0}),
		record("a_left", []float64{1}, []float64{1}, []float64{0}),
		record("a_right", []float64{1}, []float64{1}, []float64{0}),
		record("b_right", []float64{1}, []float64{1}, []float64{0}),
	}
	merged := MergeSeries(records, "_left", "_right")
	if len(merged) != 2 || merged[0].Name != "b" || merged[1].Name != "a" {
		t.Fatalf("insertion order not preserved: %+v", merged)
	}
}
