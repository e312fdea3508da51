package compare

import "segmetrics/pkg/morph"

// Dice returns the Dice similarity coefficient 2|A∩B| / (|A|+|B|) of two
// binary masks. Two empty masks score an explicit 0, not NaN.
func Dice(a, b []bool) float64 {
	intersection, total := 0, 0
	for i := range a {
		if a[i] && b[i] {
			intersection++
		}
		if a[i] {
			total++
		}
		if b[i] {
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return 2 * float64(intersection) / float64(total)
}

// Jaccard returns the Jaccard index (IoU) |A∩B| / |A∪B| of two binary
// masks, or 0 when the union is empty.
func Jaccard(a, b []bool) float64 {
	intersection, union := 0, 0
	for i := range a {
		if a[i] && b[i] {
			intersection++
		}
		if a[i] || b[i] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// PrecisionRecall returns precision TP/(TP+FP) and recall TP/(TP+FN) of
// a predicted mask against a designated ground-truth mask. Zero
// denominators yield 0. The ground-truth designation is fixed by the
// caller; swapping the arguments swaps precision and recall semantics.
func PrecisionRecall(predicted, groundTruth []bool) (precision, recall float64) {
	tp, fp, fn := 0, 0, 0
	for i := range predicted {
		switch {
		case predicted[i] && groundTruth[i]:
			tp++
		case predicted[i] && !groundTruth[i]:
			fp++
		case !predicted[i] && groundTruth[i]:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	return precision, recall
}

// Area returns the foreground area of a binary mask in cm² given the
// in-plane spacing in mm.
func Area(mask []bool, spacingX, spacingY float64) float64 {
	return float64(morph.Count(mask)) * spacingX * spacingY / 100
}
