// Package nrrd reads NRRD label volumes, including the segmentation
// files exported by 3D Slicer (.seg.nrrd). It parses the text header,
// decodes the raw or gzip payload, and derives the volume geometry from
// the ijk-to-physical affine: spacing from the magnitude of the matrix
// diagonal, origin from the translation column, and direction from the
// matrix after removing the per-axis spacing scale.
package nrrd

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"segmetrics/internal/models"
)

// Segment describes one labelled segment of a segmentation file, taken
// from the SegmentN_Name / SegmentN_LabelValue header key-values.
type Segment struct {
	// Index is the N of the SegmentN_* header keys
	Index int

	// Name is the segment's display name
	Name string

	// LabelValue is the voxel value marking this segment
	LabelValue int
}

type header struct {
	dimension  int
	sizes      []int
	typeName   string
	encoding   string
	littleEnd  bool
	space      string
	directions [3][3]float64
	origin     [3]float64
	hasSpace   bool
	segments   map[int]*Segment
}

// Read parses a NRRD file and returns the label volume plus any segment
// descriptions found in the header. Segments are ordered by index; an
// empty slice means the file is a plain label volume without Slicer
// segment metadata.
func Read(path string) (*models.Volume, []Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open NRRD file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	magic, err := reader.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read NRRD magic: %w", err)
	}
	if !strings.HasPrefix(magic, "NRRD000") {
		return nil, nil, fmt.Errorf("not a NRRD file: magic %q", strings.TrimSpace(magic))
	}

	hdr := &header{
		littleEnd: true,
		encoding:  "raw",
		segments:  map[int]*Segment{},
	}
	if err := parseHeader(reader, hdr); err != nil {
		return nil, nil, err
	}

	if hdr.dimension != 3 {
		return nil, nil, fmt.Errorf("unsupported NRRD dimension %d, want 3", hdr.dimension)
	}
	if len(hdr.sizes) != 3 {
		return nil, nil, fmt.Errorf("sizes field has %d entries, want 3", len(hdr.sizes))
	}

	data, err := readPayload(reader, hdr)
	if err != nil {
		return nil, nil, err
	}

	width, height, depth := hdr.sizes[0], hdr.sizes[1], hdr.sizes[2]
	if len(data) != width*height*depth {
		return nil, nil, fmt.Errorf("payload holds %d voxels, header promises %d",
			len(data), width*height*depth)
	}

	volume, err := buildVolume(data, width, height, depth, hdr)
	if err != nil {
		return nil, nil, err
	}

	return volume, sortedSegments(hdr), nil
}

func parseHeader(reader *bufio.Reader, hdr *header) error {
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read NRRD header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return nil
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		if key, value, ok := strings.Cut(line, ":="); ok {
			parseKeyValue(hdr, key, value)
			continue
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if err := parseField(hdr, key, strings.TrimSpace(value)); err != nil {
			return err
		}
	}
}

func parseField(hdr *header, key, value string) error {
	switch key {
	case "dimension":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad dimension %q: %w", value, err)
		}
		hdr.dimension = n

	case "sizes":
		for _, field := range strings.Fields(value) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("bad sizes entry %q: %w", field, err)
			}
			hdr.sizes = append(hdr.sizes, n)
		}

	case "type":
		hdr.typeName = value

	case "encoding":
		hdr.encoding = value

	case "endian":
		hdr.littleEnd = value != "big"

	case "space":
		hdr.space = value

	case "space directions":
		vectors := strings.Fields(value)
		if len(vectors) != 3 {
			return fmt.Errorf("space directions has %d vectors, want 3", len(vectors))
		}
		for axis, vector := range vectors {
			components, err := parseVector(vector)
			if err != nil {
				return fmt.Errorf("bad space direction %q: %w", vector, err)
			}
			hdr.directions[axis] = components
		}
		hdr.hasSpace = true

	case "space origin":
		components, err := parseVector(value)
		if err != nil {
			return fmt.Errorf("bad space origin %q: %w", value, err)
		}
		hdr.origin = components

	case "data file", "datafile":
		return fmt.Errorf("detached NRRD data files are not supported")
	}
	return nil
}

func parseKeyValue(hdr *header, key, value string) {
	var index int
	var suffix string
	if n, err := fmt.Sscanf(key, "Segment%d_%s", &index, &suffix); err != nil || n != 2 {
		return
	}

	segment := hdr.segments[index]
	if segment == nil {
		segment = &Segment{Index: index, LabelValue: 1}
		hdr.segments[index] = segment
	}

	switch suffix {
	case "Name":
		segment.Name = value
	case "LabelValue":
		if label, err := strconv.Atoi(value); err == nil {
			segment.LabelValue = label
		}
	}
}

func parseVector(text string) ([3]float64, error) {
	var v [3]float64
	trimmed := strings.TrimPrefix(strings.TrimSuffix(text, ")"), "(")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want 3 components, got %d", len(parts))
	}
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return v, err
		}
		v[i] = value
	}
	return v, nil
}

func readPayload(reader *bufio.Reader, hdr *header) ([]float64, error) {
	var payload io.Reader = reader
	switch hdr.encoding {
	case "raw":
	case "gzip", "gz":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer gz.Close()
		payload = gz
	default:
		return nil, fmt.Errorf("unsupported NRRD encoding %q", hdr.encoding)
	}

	raw, err := io.ReadAll(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to read NRRD payload: %w", err)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if !hdr.littleEnd {
		order = binary.BigEndian
	}

	return decodeValues(raw, hdr.typeName, order)
}

func decodeValues(raw []byte, typeName string, order binary.ByteOrder) ([]float64, error) {
	size, err := typeSize(typeName)
	if err != nil {
		return nil, err
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("payload size %d is not a multiple of voxel size %d", len(raw), size)
	}

	values := make([]float64, len(raw)/size)
	for i := range values {
		chunk := raw[i*size:]
		switch typeName {
		case "unsigned char", "uchar", "uint8", "uint8_t":
			values[i] = float64(chunk[0])
		case "signed char", "int8", "int8_t":
			values[i] = float64(int8(chunk[0]))
		case "short", "signed short", "int16", "int16_t":
			values[i] = float64(int16(order.Uint16(chunk)))
		case "unsigned short", "ushort", "uint16", "uint16_t":
			values[i] = float64(order.Uint16(chunk))
		case "int", "signed int", "int32", "int32_t":
			values[i] = float64(int32(order.Uint32(chunk)))
		case "unsigned int", "uint", "uint32", "uint32_t":
			values[i] = float64(order.Uint32(chunk))
		case "float":
			values[i] = float64(math.Float32frombits(order.Uint32(chunk)))
		case "double":
			values[i] = math.Float64frombits(order.Uint64(chunk))
		}
	}
	return values, nil
}

func typeSize(typeName string) (int, error) {
	switch typeName {
	case "unsigned char", "uchar", "uint8", "uint8_t", "signed char", "int8", "int8_t":
		return 1, nil
	case "short", "signed short", "int16", "int16_t", "unsigned short", "ushort", "uint16", "uint16_t":
		return 2, nil
	case "int", "signed int", "int32", "int32_t", "unsigned int", "uint", "uint32", "uint32_t", "float":
		return 4, nil
	case "double":
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported NRRD type %q", typeName)
	}
}

func buildVolume(data []float64, width, height, depth int, hdr *header) (*models.Volume, error) {
	if !hdr.hasSpace {
		v := models.NewVolume(width, height, depth)
		v.Data = data
		return v, nil
	}

	// NRRD stores space directions per image axis; they form the
	// columns of the ijk-to-physical matrix.
	affine := mat.NewDense(4, 4, nil)
	for row := 0; row < 3; row++ {
		for axis := 0; axis < 3; axis++ {
			affine.Set(row, axis, hdr.directions[axis][row])
		}
		affine.Set(row, 3, hdr.origin[row])
	}
	affine.Set(3, 3, 1)

	// Slicer writes LPS; RAS headers are flipped on the first two
	// physical axes so all volumes share the LPS convention.
	if strings.Contains(hdr.space, "right-anterior-superior") || hdr.space == "RAS" {
		for col := 0; col < 4; col++ {
			affine.Set(0, col, -affine.At(0, col))
			affine.Set(1, col, -affine.At(1, col))
		}
	}

	return models.VolumeFromAffine(data, width, height, depth, affine)
}

func sortedSegments(hdr *header) []Segment {
	segments := make([]Segment, 0, len(hdr.segments))
	for _, segment := range hdr.segments {
		segments = append(segments, *segment)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })
	return segments
}

// SelectSegment extracts a binary mask volume for one label value: 1
// where the voxel carries exactly that label, 0 elsewhere.
func SelectSegment(v *models.Volume, labelValue int) *models.Volume {
	mask := models.NewVolume(v.Width, v.Height, v.Depth)
	mask.Spacing = v.Spacing
	mask.Origin = v.Origin
	mask.Direction = v.Direction
	for i, value := range v.Data {
		if int(value) == labelValue {
			mask.Data[i] = 1
		}
	}
	return mask
}
