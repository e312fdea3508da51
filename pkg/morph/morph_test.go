package morph

import "testing"

// blockMask creates a width x height mask with a filled rectangle from
// (x0, y0) inclusive to (x1, y1) exclusive.
func blockMask(width, height, x0, y0, x1, y1 int) []bool {
	mask := make([]bool, width*height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			mask[y*width+x] = true
		}
	}
	return mask
}

func TestBinarize(t *testing.T) {
	data := []float64{0, 1, 2.5, -1, 0.0001}
	mask := Binarize(data)
	expected := []bool{false, true, true, false, true}
	for i := range expected {
		if mask[i] != expected[i] {
			t.Errorf("pixel %d: got %v, want %v", i, mask[i], expected[i])
		}
	}
}

func TestErodeShrinksInteriorBlock(t *testing.T) {
	// 3x3 block away from the border loses its ring, leaving the center
	mask := blockMask(7, 7, 2, 2, 5, 5)
	eroded := Erode(mask, 7, 7, 1)

	if got := Count(eroded); got != 1 {
		t.Fatalf("expected 1 surviving pixel, got %d", got)
	}
	if !eroded[3*7+3] {
		t.Error("center pixel should survive erosion")
	}
}

func TestErodeMultipleIterations(t *testing.T) {
	mask := blockMask(20, 20, 5, 5, 15, 15) // 10x10 block
	for _, tc := range []struct {
		iterations int
		want       int
	}{
		{0, 100},
		{1, 64},
		{2, 36},
		{3, 16},
		{4, 4},
		{5, 0},
	} {
		eroded := Erode(mask, 20, 20, tc.iterations)
		if got := Count(eroded); got != tc.want {
			t.Errorf("iterations=%d: got %d pixels, want %d", tc.iterations, got, tc.want)
		}
	}
}

func TestErodeNeverGrows(t *testing.T) {
	mask := blockMask(10, 10, 1, 1, 8, 8)
	previous := Count(mask)
	for iterations := 1; iterations <= 5; iterations++ {
		count := Count(Erode(mask, 10, 10, iterations))
		if count > previous {
			t.Fatalf("iterations=%d: count %d exceeds previous %d", iterations, count, previous)
		}
		previous = count
	}
}

func TestErodeImageBorderActsAsForeground(t *testing.T) {
	// a mask covering the whole image has no internal boundary to erode from
	mask := blockMask(5, 5, 0, 0, 5, 5)
	eroded := Erode(mask, 5, 5, 3)
	if got := Count(eroded); got != 25 {
		t.Errorf("full-image mask should survive erosion, got %d of 25 pixels", got)
	}
}

func TestErodeDoesNotMutateInput(t *testing.T) {
	mask := blockMask(7, 7, 2, 2, 5, 5)
	before := Count(mask)
	Erode(mask, 7, 7, 2)
	if Count(mask) != before {
		t.Error("erosion mutated its input mask")
	}
}

func TestBoundaryOfBlock(t *testing.T) {
	mask := blockMask(7, 7, 2, 2, 5, 5)
	boundary := Boundary(mask, 7, 7)

	if got := Count(boundary); got != 8 {
		t.Fatalf("3x3 block should have 8 boundary pixels, got %d", got)
	}
	if boundary[3*7+3] {
		t.Error("interior pixel must not be part of the boundary")
	}
}

func TestBoundaryAtImageBorder(t *testing.T) {
	// pixels on the image border are boundary pixels even when the
	// mask extends to the edge
	mask := blockMask(4, 4, 0, 0, 4, 4)
	boundary := Boundary(mask, 4, 4)
	if got := Count(boundary); got != 12 {
		t.Errorf("expected the 12-pixel border ring, got %d", got)
	}
}

func TestBoundaryOfSinglePixel(t *testing.T) {
	mask := blockMask(5, 5, 2, 2, 3, 3)
	boundary := Boundary(mask, 5, 5)
	if got := Count(boundary); got != 1 {
		t.Errorf("single pixel is its own boundary, got %d pixels", got)
	}
}

func TestPoints(t *testing.T) {
	mask := make([]bool, 12)
	mask[1] = true  // (1, 0)
	mask[10] = true // (2, 2) at width 4
	points := Points(mask, 4)

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0] != [2]int{1, 0} || points[1] != [2]int{2, 2} {
		t.Errorf("unexpected point coordinates: %v", points)
	}
}
