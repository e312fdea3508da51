// Package nifti reads NIfTI-1 volumes (.nii and .nii.gz), the format
// the external segmentation engine writes its label masks in. Only the
// header fields the pipeline needs are interpreted: dimensions, data
// type, scaling, and the sform affine for geometry. NIfTI affines are
// RAS; they are converted to LPS so every volume in the pipeline shares
// one physical convention.
package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"segmetrics/internal/models"
)

const headerSize = 348

// NIfTI-1 datatype codes
const (
	typeUint8   = 2
	typeInt16   = 4
	typeInt32   = 8
	typeFloat32 = 16
	typeFloat64 = 64
	typeInt8    = 256
	typeUint16  = 512
)

// Read parses a NIfTI-1 file into a volume. Voxel values are rescaled
// with scl_slope/scl_inter when present, so CT volumes come back in
// calibrated Hounsfield Units.
func Read(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NIfTI file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read NIfTI file: %w", err)
	}
	if len(raw) < headerSize {
		return nil, fmt.Errorf("file of %d bytes is too short for a NIfTI header", len(raw))
	}

	// sizeof_hdr doubles as an endianness probe
	var order binary.ByteOrder = binary.LittleEndian
	if order.Uint32(raw) != headerSize {
		order = binary.BigEndian
		if order.Uint32(raw) != headerSize {
			return nil, fmt.Errorf("not a NIfTI-1 file: sizeof_hdr is neither %d LE nor BE", headerSize)
		}
	}

	magic := string(raw[344:347])
	if magic != "n+1" && magic != "ni1" {
		return nil, fmt.Errorf("not a NIfTI-1 file: magic %q", magic)
	}
	if magic == "ni1" {
		return nil, fmt.Errorf("two-file NIfTI (.hdr/.img) is not supported")
	}

	ndim := int(int16(order.Uint16(raw[40:])))
	if ndim < 3 {
		return nil, fmt.Errorf("volume has %d dimensions, want at least 3", ndim)
	}
	width := int(int16(order.Uint16(raw[42:])))
	height := int(int16(order.Uint16(raw[44:])))
	depth := int(int16(order.Uint16(raw[46:])))
	for d := 4; d <= ndim; d++ {
		if extra := int(int16(order.Uint16(raw[40+2*d:]))); extra > 1 {
			return nil, fmt.Errorf("volume has a non-singleton dimension %d of size %d", d, extra)
		}
	}

	datatype := int(int16(order.Uint16(raw[70:])))
	voxOffset := int(float32FromBits(order.Uint32(raw[108:])))
	slope := float64(float32FromBits(order.Uint32(raw[112:])))
	inter := float64(float32FromBits(order.Uint32(raw[116:])))

	voxels := width * height * depth
	data, err := decodeVoxels(raw, voxOffset, voxels, datatype, order)
	if err != nil {
		return nil, err
	}

	if slope != 0 && (slope != 1 || inter != 0) {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	sformCode := int(int16(order.Uint16(raw[254:])))
	if sformCode > 0 {
		affine := mat.NewDense(4, 4, nil)
		for row := 0; row < 3; row++ {
			base := 280 + row*16
			for col := 0; col < 4; col++ {
				affine.Set(row, col, float64(float32FromBits(order.Uint32(raw[base+4*col:]))))
			}
		}
		affine.Set(3, 3, 1)

		// RAS to LPS: negate the first two physical axes
		for col := 0; col < 4; col++ {
			affine.Set(0, col, -affine.At(0, col))
			affine.Set(1, col, -affine.At(1, col))
		}

		return models.VolumeFromAffine(data, width, height, depth, affine)
	}

	// no sform: fall back to pixdim spacing with identity orientation
	v := models.NewVolume(width, height, depth)
	v.Data = data
	for axis := 0; axis < 3; axis++ {
		spacing := float64(float32FromBits(order.Uint32(raw[76+4*(axis+1):])))
		if spacing > 0 {
			v.Spacing[axis] = spacing
		}
	}
	return v, nil
}

func decodeVoxels(raw []byte, offset, voxels, datatype int, order binary.ByteOrder) ([]float64, error) {
	size, err := datatypeSize(datatype)
	if err != nil {
		return nil, err
	}
	if offset < headerSize {
		offset = headerSize
	}
	need := offset + voxels*size
	if len(raw) < need {
		return nil, fmt.Errorf("file holds %d bytes, voxel data needs %d", len(raw), need)
	}

	data := make([]float64, voxels)
	for i := range data {
		chunk := raw[offset+i*size:]
		switch datatype {
		case typeUint8:
			data[i] = float64(chunk[0])
		case typeInt8:
			data[i] = float64(int8(chunk[0]))
		case typeInt16:
			data[i] = float64(int16(order.Uint16(chunk)))
		case typeUint16:
			data[i] = float64(order.Uint16(chunk))
		case typeInt32:
			data[i] = float64(int32(order.Uint32(chunk)))
		case typeFloat32:
			data[i] = float64(float32FromBits(order.Uint32(chunk)))
		case typeFloat64:
			data[i] = math.Float64frombits(order.Uint64(chunk))
		}
	}
	return data, nil
}

func datatypeSize(datatype int) (int, error) {
	switch datatype {
	case typeUint8, typeInt8:
		return 1, nil
	case typeInt16, typeUint16:
		return 2, nil
	case typeInt32, typeFloat32:
		return 4, nil
	case typeFloat64:
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported NIfTI datatype %d", datatype)
	}
}

func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}
