// Package volio dispatches volume loading by path: DICOM series
// directories, NIfTI files and NRRD files all come back as
// models.Volume, so the rest of the pipeline never touches file formats.
package volio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"segmetrics/internal/models"
	"segmetrics/pkg/dicomvol"
	"segmetrics/pkg/nifti"
	"segmetrics/pkg/nrrd"
)

// ReadVolume loads a scalar volume: a DICOM series when path is a
// directory, otherwise a NIfTI or NRRD file selected by extension.
func ReadVolume(path string) (*models.Volume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return dicomvol.ReadSeries(path)
	}

	switch {
	case strings.HasSuffix(path, ".nii"), strings.HasSuffix(path, ".nii.gz"):
		return nifti.Read(path)
	case strings.HasSuffix(path, ".nrrd"):
		volume, _, err := nrrd.Read(path)
		return volume, err
	default:
		return nil, fmt.Errorf("unsupported volume format: %s", path)
	}
}

// ReadLabel loads a label volume and reduces it to a single binary
// mask. For Slicer segmentation files the first segment's label value is
// selected, with a warning when more segments are present; for plain
// label files the volume is returned as-is. The second return value is
// the segment name, or the file base name when no segment metadata
// exists.
func ReadLabel(path string, log zerolog.Logger) (*models.Volume, string, error) {
	if strings.HasSuffix(path, ".nrrd") {
		volume, segments, err := nrrd.Read(path)
		if err != nil {
			return nil, "", err
		}
		if len(segments) == 0 {
			return volume, StructureName(path), nil
		}
		if len(segments) > 1 {
			log.Warn().
				Int("segments", len(segments)).
				Str("using", segments[0].Name).
				Msg("multiple segments found, using the first")
		}
		log.Info().
			Str("segment", segments[0].Name).
			Int("labelValue", segments[0].LabelValue).
			Msg("loaded annotation")
		return nrrd.SelectSegment(volume, segments[0].LabelValue), segments[0].Name, nil
	}

	volume, err := ReadVolume(path)
	if err != nil {
		return nil, "", err
	}
	return volume, StructureName(path), nil
}

// StructureName derives the structure name from a mask filename by
// stripping the directory and the volume-format extensions.
func StructureName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".nii.gz", ".nii", ".seg.nrrd", ".nrrd"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
