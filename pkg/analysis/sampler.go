package analysis

import (
	"gonum.org/v1/gonum/stat"

	"segmetrics/pkg/morph"
)

// Pixel-count thresholds for the tiered erosion fallback. These are
// calibrated against manual radiologist measurements and must not be
// re-derived.
const (
	minErodedPixels    = 50
	minErodedFraction  = 0.2
	minFallbackPixels  = 20
	fallbackIterations = 3
)

// SampleIntensity computes a robust mean and population standard
// deviation of the intensity values under a binary mask. The mask is
// eroded to exclude partial-volume boundary pixels, with a tiered
// fallback so small structures never collapse to an empty sample:
//
//  1. an empty mask returns (0, 0)
//  2. the mask is eroded erosionIters times with a 3x3 element
//  3. if erosionIters > 3 and the eroded region holds fewer than 50
//     pixels or less than 20% of the original pixels, the original mask
//     is re-eroded with exactly 3 iterations instead
//  4. if the region still holds fewer than 20 pixels, the original
//     unmodified mask is used
func SampleIntensity(mask []bool, intensity []float64, width, height, erosionIters int) (mean, stddev float64) {
	originalPixels := morph.Count(mask)
	if originalPixels == 0 {
		return 0, 0
	}

	sampleMask := mask
	if erosionIters > 0 {
		sampleMask = morph.Erode(mask, width, height, erosionIters)
	}

	pixels := morph.Count(sampleMask)
	if erosionIters > fallbackIterations &&
		(pixels < minErodedPixels || float64(pixels) < float64(originalPixels)*minErodedFraction) {
		sampleMask = morph.Erode(mask, width, height, fallbackIterations)
		pixels = morph.Count(sampleMask)
	}

	if pixels < minFallbackPixels {
		sampleMask = mask
	}

	values := make([]float64, 0, originalPixels)
	for i, on := range sampleMask {
		if on {
			values = append(values, intensity[i])
		}
	}
	if len(values) == 0 {
		return 0, 0
	}

	return stat.Mean(values, nil), stat.PopStdDev(values, nil)
}
