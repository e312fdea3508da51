package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"segmetrics/pkg/analysis"
	"segmetrics/pkg/bilateral"
	"segmetrics/pkg/config"
	"segmetrics/pkg/dicomvol"
	"segmetrics/pkg/export"
	"segmetrics/pkg/overlay"
	"segmetrics/pkg/resample"
	"segmetrics/pkg/volio"
)

func main() {
	// Parse command line arguments
	masksDir := flag.String("masks", "", "Directory containing structure mask volumes (.nii, .nii.gz, .nrrd)")
	dicomDir := flag.String("dicom", "", "Directory containing the reference CT DICOM series")
	outputCSV := flag.String("out", "mask_statistics.csv", "Output CSV filename")
	statsJSON := flag.String("stats", "", "Per-structure statistics JSON from the segmentation engine (default: <masks>/statistics.json)")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	erosionIters := flag.Int("erosion", -1, "Erosion iterations for intensity sampling (default: from config)")
	overlayDir := flag.String("overlay-dir", "", "Optional directory to save per-slice overlay PNGs")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Validate inputs
	if *masksDir == "" || *dicomDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.Output.Verbose {
		log = log.Level(zerolog.WarnLevel)
	}
	if *erosionIters >= 0 {
		cfg.Analysis.ErosionIterations = *erosionIters
	}

	// Step 1: load the reference CT series
	log.Info().Str("dir", *dicomDir).Msg("loading CT series")
	ct, err := dicomvol.ReadSeries(*dicomDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load CT series")
	}
	log.Info().
		Int("width", ct.Width).Int("height", ct.Height).Int("slices", ct.Depth).
		Floats64("spacing", ct.Spacing[:]).
		Msg("CT series loaded")

	// Step 2: analyze every structure mask against the CT
	maskFiles, err := listMaskFiles(*masksDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list mask files")
	}
	if len(maskFiles) == 0 {
		log.Fatal().Str("dir", *masksDir).Msg("no mask volumes found")
	}

	engine := analysis.NewEngine(cfg.Analysis.ErosionIterations)
	var records []*analysis.StructureRecord
	var summary []bilateral.SummaryRow
	var masks []overlay.NamedMask

	for _, path := range maskFiles {
		name := volio.StructureName(path)
		mask, err := volio.ReadVolume(path)
		if err != nil {
			log.Fatal().Err(err).Str("mask", path).Msg("failed to read mask volume")
		}

		// masks from the engine share the CT geometry on paper, but
		// resampling by stored geometry makes that guaranteed
		aligned, err := resample.Resample(mask, ct)
		if err != nil {
			log.Fatal().Err(err).Str("mask", name).Msg("failed to align mask")
		}

		record, err := engine.Analyze(name, aligned, ct)
		if err != nil {
			log.Fatal().Err(err).Str("mask", name).Msg("failed to analyze mask")
		}
		records = append(records, record)
		summary = append(summary, bilateral.SummaryRow{
			Structure:  name,
			PixelCount: record.PixelCount,
			VolumeCM3:  record.VolumeCM3,
		})
		masks = append(masks, overlay.NamedMask{Name: name, Volume: aligned})

		log.Info().
			Str("structure", name).
			Int("pixels", record.PixelCount).
			Float64("volume_cm3", record.VolumeCM3).
			Msg("structure analyzed")
	}

	// Step 3: merge bilateral structures
	merged := bilateral.MergeSeries(records, cfg.Analysis.LeftSuffix, cfg.Analysis.RightSuffix)

	// Step 4: reconcile the summary with the engine's intensity table
	statsPath := *statsJSON
	if statsPath == "" {
		statsPath = filepath.Join(*masksDir, "statistics.json")
	}
	intensity, err := bilateral.LoadIntensityTable(statsPath)
	if err != nil {
		log.Warn().Err(err).Msg("statistics file unavailable, structure mean HU defaults to 0")
		intensity = bilateral.IntensityTable{}
	}
	reconciled := bilateral.Reconcile(summary, intensity, cfg.Analysis.LeftSuffix, cfg.Analysis.RightSuffix)

	// Step 5: export
	out, err := os.Create(*outputCSV)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create output CSV")
	}
	defer out.Close()

	if err := export.WriteStructureCSV(out, records, merged, summary, reconciled); err != nil {
		log.Fatal().Err(err).Msg("failed to write CSV")
	}
	log.Info().Str("path", *outputCSV).Msg("structure statistics exported")
	fmt.Printf("Analyzed %d structures (%d after bilateral merge). Output saved to: %s\n",
		len(records), len(merged), *outputCSV)

	// Step 6: optional overlay rendering
	if *overlayDir != "" {
		renderer := overlay.NewRenderer(ct, cfg.Overlay.WindowCenter, cfg.Overlay.WindowWidth, cfg.Overlay.Alpha)
		if err := renderer.SaveSliceSequence(*overlayDir, masks); err != nil {
			log.Fatal().Err(err).Msg("failed to render overlays")
		}
		log.Info().Str("dir", *overlayDir).Msg("overlay images saved")
	}
}

// listMaskFiles returns the mask volumes of a segmentation output
// directory in a deterministic order.
func listMaskFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".nii") || strings.HasSuffix(name, ".nii.gz") || strings.HasSuffix(name, ".nrrd") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}
