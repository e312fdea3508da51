package compare

import (
	"math"
	"testing"
)

func boolMask(values ...int) []bool {
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = v != 0
	}
	return mask
}

func TestDice(t *testing.T) {
	tests := []struct {
		name string
		a, b []bool
		want float64
	}{
		{
			name: "partial overlap",
			a:    boolMask(1, 1, 1, 0, 0, 0),
			b:    boolMask(1, 1, 0, 1, 0, 0),
			want: 4.0 / 6.0,
		},
		{
			name: "identical",
			a:    boolMask(0, 1, 1, 0),
			b:    boolMask(0, 1, 1, 0),
			want: 1,
		},
		{
			name: "disjoint",
			a:    boolMask(1, 1, 0, 0),
			b:    boolMask(0, 0, 1, 1),
			want: 0,
		},
		{
			name: "both empty",
			a:    boolMask(0, 0, 0),
			b:    boolMask(0, 0, 0),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dice(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Dice = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	a := boolMask(1, 1, 1, 0, 0, 0)
	b := boolMask(1, 1, 0, 1, 0, 0)

	// intersection 2, union 4
	if got := Jaccard(a, b); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Jaccard = %v, want 0.5", got)
	}
	if got := Jaccard(boolMask(0, 0), boolMask(0, 0)); got != 0 {
		t.Errorf("empty union: got %v, want 0", got)
	}
}

func TestJaccardNeverExceedsDice(t *testing.T) {
	a := boolMask(1, 1, 0, 1, 0, 1, 1, 0)
	b := boolMask(0, 1, 1, 1, 0, 0, 1, 1)
	if Jaccard(a, b) > Dice(a, b) {
		t.Errorf("Jaccard %v exceeds Dice %v", Jaccard(a, b), Dice(a, b))
	}
}

func TestPrecisionRecall(t *testing.T) {
	// TP=2, FP=1, FN=2
	predicted := boolMask(1, 1, 1, 0, 0, 0)
	truth := boolMask(1, 1, 0, 1, 1, 0)

	precision, recall := PrecisionRecall(predicted, truth)
	if math.Abs(precision-2.0/3.0) > 1e-9 {
		t.Errorf("precision = %v, want 2/3", precision)
	}
	if math.Abs(recall-0.5) > 1e-9 {
		t.Errorf("recall = %v, want 0.5", recall)
	}
}

func TestPrecisionRecallZeroDenominators(t *testing.T) {
	precision, recall := PrecisionRecall(boolMask(0, 0), boolMask(1, 0))
	if precision != 0 {
		t.Errorf("empty prediction precision = %v, want 0", precision)
	}
	if recall != 0 {
		t.Errorf("missed truth recall = %v, want 0", recall)
	}

	precision, recall = PrecisionRecall(boolMask(1, 0), boolMask(0, 0))
	if precision != 0 || recall != 0 {
		t.Errorf("empty truth: precision %v recall %v, want 0 0", precision, recall)
	}
}

func TestArea(t *testing.T) {
	mask := boolMask(1, 1, 1, 1, 0, 0)

	// 4 pixels at 0.7 x 0.7 mm = 1.96 mm² = 0.0196 cm²
	if got := Area(mask, 0.7, 0.7); math.Abs(got-0.0196) > 1e-9 {
		t.Errorf("Area = %v, want 0.0196", got)
	}
	if got := Area(mask, 1, 1); math.Abs(got-0.04) > 1e-9 {
		t.Errorf("unit spacing Area = %v, want 0.04", got)
	}
}
