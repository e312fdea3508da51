// Package overlay renders quality-control images: an axial CT slice
// windowed to grayscale with each structure mask composited on top in a
// distinct color. One PNG per slice makes visual review of a
// segmentation run cheap without a DICOM viewer.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"segmetrics/internal/models"
)

// NamedMask pairs a structure name with its aligned label volume.
type NamedMask struct {
	Name   string
	Volume *models.Volume
}

// Renderer draws overlay images for one CT volume.
type Renderer struct {
	ct *models.Volume

	// windowCenter and windowWidth define the HU display window
	windowCenter float64
	windowWidth  float64

	// alpha is the mask blend factor in [0,1]
	alpha float64
}

// NewRenderer creates a renderer with the given HU display window and
// mask blend factor.
func NewRenderer(ct *models.Volume, windowCenter, windowWidth, alpha float64) *Renderer {
	if windowWidth <= 0 {
		windowWidth = 1
	}
	return &Renderer{
		ct:           ct,
		windowCenter: windowCenter,
		windowWidth:  windowWidth,
		alpha:        alpha,
	}
}

// RenderSlice draws axial slice z of the CT with all masks composited on
// top. Masks must be aligned to the CT grid.
func (r *Renderer) RenderSlice(z int, masks []NamedMask) (image.Image, error) {
	if z < 0 || z >= r.ct.Depth {
		return nil, fmt.Errorf("slice %d exceeds depth %d", z, r.ct.Depth)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.ct.Width, r.ct.Height))
	lower := r.windowCenter - r.windowWidth/2

	for y := 0; y < r.ct.Height; y++ {
		for x := 0; x < r.ct.Width; x++ {
			level := (r.ct.At(x, y, z) - lower) / r.windowWidth
			gray := uint8(math.Max(0, math.Min(255, level*255)))
			img.SetRGBA(x, y, color.RGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}

	palette := Palette(len(masks))
	for i, mask := range masks {
		if mask.Volume.Width != r.ct.Width || mask.Volume.Height != r.ct.Height || mask.Volume.Depth != r.ct.Depth {
			return nil, fmt.Errorf("mask %q grid does not match CT grid", mask.Name)
		}
		tint := palette[i]
		for y := 0; y < r.ct.Height; y++ {
			for x := 0; x < r.ct.Width; x++ {
				if mask.Volume.At(x, y, z) <= 0 {
					continue
				}
				base := img.RGBAAt(x, y)
				img.SetRGBA(x, y, blend(base, tint, r.alpha))
			}
		}
	}

	return img, nil
}

// SaveSliceSequence renders and saves every slice that carries at least
// one foreground mask pixel, named overlay_<index>.png in outputDir.
func (r *Renderer) SaveSliceSequence(outputDir string, masks []NamedMask) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < r.ct.Depth; z++ {
		if !anyForeground(masks, z) {
			continue
		}

		img, err := r.RenderSlice(z, masks)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("overlay_%03d.png", z))
		if err := savePNG(img, filename); err != nil {
			return err
		}
	}

	return nil
}

func anyForeground(masks []NamedMask, z int) bool {
	for _, mask := range masks {
		if z >= mask.Volume.Depth {
			continue
		}
		for _, value := range mask.Volume.Slice(z) {
			if value > 0 {
				return true
			}
		}
	}
	return false
}

func savePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

func blend(base, tint color.RGBA, alpha float64) color.RGBA {
	mix := func(b, t uint8) uint8 {
		return uint8(float64(b)*(1-alpha) + float64(t)*alpha)
	}
	return color.RGBA{
		R: mix(base.R, tint.R),
		G: mix(base.G, tint.G),
		B: mix(base.B, tint.B),
		A: 255,
	}
}

// Palette returns n visually distinct colors spread evenly around the
// hue circle at fixed saturation and value.
func Palette(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		hue := math.Mod(float64(i)/math.Max(1, float64(n)), 1.0)
		r, g, b := hsvToRGB(hue, 0.8, 0.9)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}
