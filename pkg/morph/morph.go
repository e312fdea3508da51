// Package morph implements binary morphology on 2D masks: erosion with a
// 3x3 structuring element and boundary extraction. Masks are represented
// as flat []bool arrays in row-major order, matching the slice layout of
// models.Volume.
package morph

// Binarize converts a scalar slice to a binary mask, treating any value
// greater than zero as foreground.
func Binarize(data []float64) []bool {
	mask := make([]bool, len(data))
	for i, value := range data {
		mask[i] = value > 0
	}
	return mask
}

// Count returns the number of foreground pixels in the mask.
func Count(mask []bool) int {
	n := 0
	for _, on := range mask {
		if on {
			n++
		}
	}
	return n
}

// Erode shrinks the mask with a full 3x3 structuring element for the given
// number of iterations. A foreground pixel survives an iteration only if
// its entire 3x3 neighborhood is foreground. Neighbors outside the image
// count as foreground, so pixels touching the image border are not eroded
// from the outside.
func Erode(mask []bool, width, height, iterations int) []bool {
	current := make([]bool, len(mask))
	copy(current, mask)

	if iterations <= 0 {
		return current
	}

	next := make([]bool, len(mask))
	for iter := 0; iter < iterations; iter++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				if !current[idx] {
					next[idx] = false
					continue
				}
				next[idx] = neighborhoodAllForeground(current, width, height, x, y)
			}
		}
		current, next = next, current
	}
	return current
}

func neighborhoodAllForeground(mask []bool, width, height, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				continue
			}
			if !mask[ny*width+nx] {
				return false
			}
		}
	}
	return true
}

// Boundary extracts the contour of the mask: foreground pixels with at
// least one background pixel in their 8-neighborhood. Pixels outside the
// image count as background, so foreground touching the image border is
// part of the boundary.
func Boundary(mask []bool, width, height int) []bool {
	contour := make([]bool, len(mask))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if !mask[idx] {
				continue
			}
			contour[idx] = hasBackgroundNeighbor(mask, width, height, x, y)
		}
	}
	return contour
}

func hasBackgroundNeighbor(mask []bool, width, height, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				return true
			}
			if !mask[ny*width+nx] {
				return true
			}
		}
	}
	return false
}

// Points returns the (x, y) coordinates of all foreground pixels.
func Points(mask []bool, width int) [][2]int {
	var points [][2]int
	for idx, on := range mask {
		if on {
			points = append(points, [2]int{idx % width, idx / width})
		}
	}
	return points
}
