package main

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/internal/config"
	"github.com/askiada/go-travel/internal/loader"
	"github.com/askiada/go-travel/pkg/align"
	"github.com/askiada/go-travel/pkg/calib"
	"github.com/askiada/go-travel/pkg/dsp"
	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/travel"
)

// Workspace keys shared by the loaders and the steps.
const (
	keyAccelLis1 = loader.KeyAccelLis1
	keyAccelLis2 = loader.KeyAccelLis2
	keyMag       = loader.KeyMag
	keyAngle     = loader.KeyAngle

	keyFiltLis1      = "accel_filt/lis1"
	keyFiltLis2      = "accel_filt/lis2"
	keyChunksLis1    = "accel_chunks/lis1"
	keyChunksLis2    = "accel_chunks/lis2"
	keyPairs         = "filtered_pairs"
	keyPairsColinear = "filtered_pairs_col"
	keyRotation      = "rotation_matrix"
	keyLis2InLis1    = "accel/lis2_in_lis1"
	keyRelative      = "accel/relative"
	keyTravelVector  = "travel_vector"
	keyMagsVsMeans   = "mags_vs_means"
	keyProjected     = "accel/projected"
	keyMagProjected  = "mag/projected"
	keyMagBaseline   = "mag_baseline"
	keyCalibDisp     = "calib/displacement"
	keyCalibMag      = "calib/mag"
	keyCalibSpans    = "calib/spans"
	keyTravelAngle   = "travel/angle"
	keyTravelMag     = "travel/mag"
	keyTravelVsMag   = "travel_vs_mag"
	keyTravelVsPred  = "travel_vs_pred"
)

// loaders picks the log readers for the configured log.
func loaders(cfg config.Config) ([]loader.Loader, error) {
	format := cfg.LogFormat
	if format == config.FormatAuto {
		format = config.FormatCSV
		if strings.EqualFold(filepath.Ext(cfg.LogPath), ".bin") {
			format = config.FormatBin
		}
	}

	switch format {
	case config.FormatBin:
		return []loader.Loader{&loader.BinaryLoader{Path: cfg.LogPath}}, nil
	case config.FormatCSV:
		return []loader.Loader{
			&loader.CSVLoader{Path: cfg.LogPath, SensorID: "lis1", Kind: loader.KindAccel},
			&loader.CSVLoader{Path: cfg.LogPath, SensorID: "lis2", Kind: loader.KindAccel},
			&loader.CSVLoader{Path: cfg.LogPath, SensorID: "mmc_mG", Kind: loader.KindMag, Key: keyMag},
			&loader.CSVLoader{Path: cfg.LogPath, SensorID: "angle_raw", Kind: loader.KindAngle, Key: keyAngle},
		}, nil
	default:
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "log format %q", cfg.LogFormat)
	}
}

// stepBuilder collects the first construction error so the pipeline reads as a list.
type stepBuilder struct {
	steps []*pipeline.Step
	err   error
}

func (b *stepBuilder) add(step *pipeline.Step, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err

		return
	}
	b.steps = append(b.steps, step)
}

func plots(keys ...string) pipeline.StepOption {
	specs := make([]model.PlotSpec, len(keys))
	for i, key := range keys {
		specs[i] = model.PlotSpec{Key: key, Kind: model.PlotAuto}
	}

	return pipeline.WithPlots(specs...)
}

// buildPipeline assembles the alignment, travel and calibration steps.
func buildPipeline(th config.Thresholds) (*pipeline.Pipeline, error) {
	filter := dsp.SavitzkyGolay{}
	b := &stepBuilder{}

	b.add(dsp.FilterStep("lowpass_lis1", keyAccelLis1, keyFiltLis1, filter, th.LowPass(), plots(keyAccelLis1, keyFiltLis1)))
	b.add(dsp.FilterStep("lowpass_lis2", keyAccelLis2, keyFiltLis2, filter, th.LowPass(), plots(keyAccelLis2, keyFiltLis2)))
	b.add(dsp.ChunkStep("chunk_lis1", keyFiltLis1, keyChunksLis1, th.ChunkSeconds))
	b.add(dsp.ChunkStep("chunk_lis2", keyFiltLis2, keyChunksLis2, th.ChunkSeconds))

	b.add(align.FilterPairsStep("filter_pairs", keyChunksLis1, keyChunksLis2, keyPairs, th.PairFilter()))
	b.add(align.FilterColinearStep("filter_colinear", keyPairs, keyPairsColinear, th.Colinear()))
	b.add(align.RotationStep("rot_from_pairs", keyPairsColinear, keyRotation))

	b.add(travel.RelativeAccelStep("relative_accel", keyFiltLis1, keyFiltLis2, keyRotation, keyLis2InLis1, keyRelative))
	b.add(travel.TravelVectorStep("travel_vector", keyRelative, keyTravelVector, keyMagsVsMeans, th.TravelVector(),
		pipeline.WithPlots(model.PlotSpec{Key: keyMagsVsMeans, Kind: model.PlotScatter, Title: "chunk magnitude vs mean"})))
	b.add(travel.ProjectStep("project_accel", keyRelative, keyTravelVector, keyProjected))

	b.add(calib.ProjectMagStep("project_mag", keyMag, keyMagProjected, th.ProjectMag()))
	b.add(calib.MagBaselineStep("mag_baseline", keyMagProjected, keyProjected, keyMagBaseline, th.Baseline()))
	b.add(calib.CalibrationStep("calibration_chunks", keyMagProjected, keyProjected, keyMagBaseline,
		keyCalibDisp, keyCalibMag, keyCalibSpans, th.Detector(), pipeline.WithPlots(
			model.PlotSpec{Key: keyCalibDisp, Kind: model.PlotNone},
			model.PlotSpec{Key: keyCalibMag, Kind: model.PlotNone},
		)))

	b.add(travel.AngleTravelStep("angle_travel", keyAngle, keyTravelAngle, th.Angle()))
	b.add(calib.MagTravelFitStep("mag_travel_fit", keyMagProjected, keyTravelAngle,
		keyTravelMag, keyTravelVsMag, keyTravelVsPred, calib.PolyFitter{}, th.Fit(),
		plots(keyTravelAngle, keyTravelMag, keyTravelVsMag, keyTravelVsPred)))

	if b.err != nil {
		return nil, b.err
	}

	return pipeline.New(b.steps...)
}
