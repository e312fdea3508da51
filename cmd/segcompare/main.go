package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"

	"segmetrics/pkg/compare"
	"segmetrics/pkg/config"
	"segmetrics/pkg/export"
	"segmetrics/pkg/resample"
	"segmetrics/pkg/volio"
)

func main() {
	// Parse command line arguments
	autoPath := flag.String("auto", "", "Automated segmentation volume (.nii, .nii.gz, .nrrd)")
	manualPath := flag.String("manual", "", "Manual reference annotation (.seg.nrrd)")
	outputCSV := flag.String("out", "", "Optional CSV filename for the comparison row")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Validate inputs
	if *autoPath == "" || *manualPath == "" {
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

	// Step 1: load both segmentations
	log.Info().Str("path", *autoPath).Msg("loading automated segmentation")
	automated, _, err := volio.ReadLabel(*autoPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load automated segmentation")
	}

	log.Info().Str("path", *manualPath).Msg("loading manual annotation")
	manual, segmentName, err := volio.ReadLabel(*manualPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load manual annotation")
	}

	// Step 2: align and compare
	groundTruth := compare.GroundTruthReference
	if cfg.Compare.GroundTruth == "automated" {
		groundTruth = compare.GroundTruthAutomated
	}
	comparator := compare.NewComparator(resample.Tolerances{
		SpacingRel:   cfg.Compare.SpacingTolerance,
		OriginAbs:    cfg.Compare.OriginTolerance,
		DirectionAbs: cfg.Compare.DirectionTolerance,
	}, groundTruth, log)

	result, err := comparator.Compare(automated, manual, segmentName)
	if err != nil {
		if errors.Is(err, compare.ErrEmptyAnnotation) {
			log.Fatal().Msg("manual annotation is empty on every slice")
		}
		log.Fatal().Err(err).Msg("comparison failed")
	}

	// Step 3: report
	fmt.Println("================================")
	fmt.Println("SEGMENTATION COMPARISON RESULT")
	fmt.Println("================================")
	fmt.Printf("Segment:        %s\n", result.SegmentName)
	fmt.Printf("Slice:          %d\n", result.SliceIndex)
	fmt.Printf("Manual area:    %.2f cm^2\n", result.ReferenceArea)
	fmt.Printf("Automated area: %.2f cm^2\n", result.AutomatedArea)
	fmt.Printf("Area diff:      %+.2f cm^2 (%s)\n", result.AreaDiff, formatPct(result.AreaDiffPct))
	fmt.Printf("Dice:           %.4f\n", result.Dice)
	fmt.Printf("Jaccard:        %.4f\n", result.Jaccard)
	fmt.Printf("Precision:      %.4f\n", result.Precision)
	fmt.Printf("Recall:         %.4f\n", result.Recall)
	fmt.Printf("HD:             %s mm\n", formatDistance(result.Surface.HD))
	fmt.Printf("HD95:           %s mm\n", formatDistance(result.Surface.HD95))
	fmt.Printf("ASSD:           %s mm\n", formatDistance(result.Surface.ASSD))

	if *outputCSV == "" {
		return
	}

	out, err := os.Create(*outputCSV)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create output CSV")
	}
	defer out.Close()

	if err := export.WriteComparisonCSV(out, result); err != nil {
		log.Fatal().Err(err).Msg("failed to write CSV")
	}
	log.Info().Str("path", *outputCSV).Msg("comparison exported")
}

func formatPct(pct *float64) string {
	if pct == nil {
		return export.NotApplicable
	}
	return fmt.Sprintf("%+.2f%%", *pct)
}

func formatDistance(value float64) string {
	if math.IsInf(value, 0) {
		return export.NotApplicable
	}
	return fmt.Sprintf("%.2f", value)
}
