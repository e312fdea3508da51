// Package dicomvol assembles a CT volume in Hounsfield Units from a
// directory of DICOM slice files. Slices are ordered by their physical
// position along the acquisition axis, geometry comes from PixelSpacing,
// ImagePositionPatient and ImageOrientationPatient, and raw pixel values
// are rescaled with the per-file slope and intercept.
package dicomvol

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"segmetrics/internal/models"
)

type sliceFile struct {
	position    [3]float64
	projection  float64
	instance    int
	rows, cols  int
	pixelValues []float64
}

// ReadSeries loads every parseable DICOM file in dir and stacks the
// slices into a single volume. Files that are not DICOM are skipped; an
// error is returned when the directory yields no usable slices or the
// slices disagree on their in-plane dimensions.
func ReadSeries(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read DICOM directory: %w", err)
	}

	var slices []*sliceFile
	var rowDir, colDir [3]float64
	var pixelSpacing [2]float64
	var sliceThickness float64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		dataset, err := dicom.ParseFile(path, nil)
		if err != nil {
			// non-DICOM files in the series directory are common
			continue
		}

		slice, err := readSlice(dataset)
		if err != nil {
			return nil, fmt.Errorf("failed to read slice %s: %w", entry.Name(), err)
		}
		slices = append(slices, slice)

		if len(slices) == 1 {
			rowDir, colDir = orientation(dataset)
			pixelSpacing = readPixelSpacing(dataset)
			sliceThickness = firstFloat(dataset, tag.SliceThickness, 1.0)
		}
	}

	if len(slices) == 0 {
		return nil, fmt.Errorf("no DICOM slices found in %s", dir)
	}

	for _, slice := range slices[1:] {
		if slice.rows != slices[0].rows || slice.cols != slices[0].cols {
			return nil, fmt.Errorf("inconsistent slice dimensions: %dx%d vs %dx%d",
				slice.cols, slice.rows, slices[0].cols, slices[0].rows)
		}
	}

	normal := cross(rowDir, colDir)
	for _, slice := range slices {
		slice.projection = dot(slice.position, normal)
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].projection != slices[j].projection {
			return slices[i].projection < slices[j].projection
		}
		return slices[i].instance < slices[j].instance
	})

	width, height, depth := slices[0].cols, slices[0].rows, len(slices)
	volume := models.NewVolume(width, height, depth)
	for z, slice := range slices {
		copy(volume.Slice(z), slice.pixelValues)
	}

	// PixelSpacing is (row spacing, column spacing), so y comes first
	volume.Spacing[0] = pixelSpacing[1]
	volume.Spacing[1] = pixelSpacing[0]
	volume.Spacing[2] = sliceSpacing(slices, sliceThickness)
	volume.Origin = slices[0].position
	for row := 0; row < 3; row++ {
		volume.Direction[row*3+0] = rowDir[row]
		volume.Direction[row*3+1] = colDir[row]
		volume.Direction[row*3+2] = normal[row]
	}

	return volume, nil
}

func readSlice(dataset dicom.Dataset) (*sliceFile, error) {
	rows := firstInt(dataset, tag.Rows, 0)
	cols := firstInt(dataset, tag.Columns, 0)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("missing Rows/Columns")
	}

	pixelDataElement, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("missing PixelData: %w", err)
	}
	pixelDataInfo := dicom.MustGetPixelDataInfo(pixelDataElement.Value)
	if len(pixelDataInfo.Frames) == 0 {
		return nil, fmt.Errorf("PixelData holds no frames")
	}

	native, err := pixelDataInfo.Frames[0].GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("frame is not native pixel data: %w", err)
	}
	if len(native.Data) != rows*cols {
		return nil, fmt.Errorf("frame holds %d pixels, want %d", len(native.Data), rows*cols)
	}

	slope := firstFloat(dataset, tag.RescaleSlope, 1.0)
	intercept := firstFloat(dataset, tag.RescaleIntercept, 0.0)
	signed := firstInt(dataset, tag.PixelRepresentation, 0) == 1
	bitsStored := firstInt(dataset, tag.BitsStored, 16)

	values := make([]float64, len(native.Data))
	signBit := 1 << (bitsStored - 1)
	wrap := 1 << bitsStored
	for i, samples := range native.Data {
		raw := samples[0]
		if signed && raw >= signBit {
			raw -= wrap
		}
		values[i] = float64(raw)*slope + intercept
	}

	slice := &sliceFile{
		instance:    firstInt(dataset, tag.InstanceNumber, 0),
		rows:        rows,
		cols:        cols,
		pixelValues: values,
	}

	position := floatValues(dataset, tag.ImagePositionPatient)
	if len(position) == 3 {
		copy(slice.position[:], position)
	}

	return slice, nil
}

func orientation(dataset dicom.Dataset) (rowDir, colDir [3]float64) {
	rowDir = [3]float64{1, 0, 0}
	colDir = [3]float64{0, 1, 0}
	cosines := floatValues(dataset, tag.ImageOrientationPatient)
	if len(cosines) == 6 {
		copy(rowDir[:], cosines[:3])
		copy(colDir[:], cosines[3:])
	}
	return rowDir, colDir
}

func readPixelSpacing(dataset dicom.Dataset) [2]float64 {
	spacing := [2]float64{1, 1}
	values := floatValues(dataset, tag.PixelSpacing)
	if len(values) == 2 {
		spacing[0] = values[0]
		spacing[1] = values[1]
	}
	return spacing
}

// sliceSpacing derives the z spacing from the distance between adjacent
// slice positions, falling back to SliceThickness for single-slice
// series.
func sliceSpacing(slices []*sliceFile, thickness float64) float64 {
	if len(slices) < 2 {
		if thickness > 0 {
			return thickness
		}
		return 1
	}
	gap := math.Abs(slices[1].projection - slices[0].projection)
	if gap == 0 {
		if thickness > 0 {
			return thickness
		}
		return 1
	}
	return gap
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// floatValues extracts a tag's value as floats, accepting the decimal
// string, integer and float representations the library returns.
func floatValues(dataset dicom.Dataset, t tag.Tag) []float64 {
	element, err := dataset.FindElementByTag(t)
	if err != nil {
		return nil
	}

	switch value := element.Value.GetValue().(type) {
	case []float64:
		return value
	case []int:
		floats := make([]float64, len(value))
		for i, n := range value {
			floats[i] = float64(n)
		}
		return floats
	case []string:
		floats := make([]float64, 0, len(value))
		for _, s := range value {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil
			}
			floats = append(floats, f)
		}
		return floats
	default:
		return nil
	}
}

func firstFloat(dataset dicom.Dataset, t tag.Tag, fallback float64) float64 {
	values := floatValues(dataset, t)
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func firstInt(dataset dicom.Dataset, t tag.Tag, fallback int) int {
	values := floatValues(dataset, t)
	if len(values) == 0 {
		return fallback
	}
	return int(values[0])
}
