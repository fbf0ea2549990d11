package calib

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// MagBaselineStep writes the magnetometer still baseline as a Scalar.
func MagBaselineStep(name, inMag, inAccel, out string, cfg BaselineConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		mag, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}
		accel, err := pipeline.FetchInput[*signal.TimeSeries](sc, 1)
		if err != nil {
			return err
		}

		baseline, err := MagBaseline(mag, accel, cfg)
		if err != nil {
			return err
		}
		sc.Record("baseline", baseline.Value)
		sc.Record("std", baseline.Std)
		sc.Record("still_windows", baseline.StillWindows)

		return sc.OutputAt(0, signal.Scalar(baseline.Value))
	}

	return pipeline.NewStep(name, []string{inMag, inAccel}, []string{out}, fn, append(opts, pipeline.WithArity(2, 1))...)
}

// CalibrationStep runs the detector. Outputs are the displacement traces, the magnetometer
// traces and the spans.
func CalibrationStep(name, inMag, inAccel, inBaseline, outDisp, outMag, outSpans string, cfg DetectorConfig,
	opts ...pipeline.StepOption,
) (*pipeline.Step, error) {
	detector, err := NewDetector(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "step %s", name)
	}

	fn := func(_ context.Context, sc *pipeline.Scope) error {
		mag, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}
		accel, err := pipeline.FetchInput[*signal.TimeSeries](sc, 1)
		if err != nil {
			return err
		}
		baseline, err := pipeline.FetchInput[signal.Scalar](sc, 2)
		if err != nil {
			return err
		}

		events, err := detector.Detect(mag, accel, float64(baseline))
		if err != nil {
			return err
		}
		_, bumpLen := events.Displacement.Dims()
		sc.Record("events", events.Len())
		sc.Record("samples_per_event", bumpLen)

		for i, artifact := range []signal.Artifact{events.Displacement, events.Mag, events.Spans} {
			if err := sc.OutputAt(i, artifact); err != nil {
				return err
			}
		}

		return nil
	}

	return pipeline.NewStep(name, []string{inMag, inAccel, inBaseline}, []string{outDisp, outMag, outSpans}, fn,
		append(opts, pipeline.WithArity(3, 3))...)
}

// ProjectMagStep projects the magnetometer on the direction of its strong samples.
func ProjectMagStep(name, in, out string, cfg ProjectConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		mag, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		projected, direction, err := ProjectMag(mag, cfg)
		if err != nil {
			return err
		}
		sc.Record("direction", direction)

		return sc.OutputAt(0, projected)
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}

// MagTravelFitStep fits travel against the projected magnetometer. Outputs are the predicted
// travel, the [travel, reading] scatter and the [travel, predicted] scatter.
func MagTravelFitStep(name, inMag, inTravel, outPredicted, outTravelVsMag, outTravelVsPred string, fitter Fitter,
	cfg FitConfig, opts ...pipeline.StepOption,
) (*pipeline.Step, error) {
	if fitter == nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "step %s has no fitter", name)
	}

	fn := func(_ context.Context, sc *pipeline.Scope) error {
		mag, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}
		travel, err := pipeline.FetchInput[*signal.TimeSeries](sc, 1)
		if err != nil {
			return err
		}

		result, err := FitMagTravel(mag, travel, fitter, cfg)
		if err != nil {
			return err
		}

		sc.Record("rmse", result.RMSE)
		for _, band := range result.Bands {
			sc.Record(fmt.Sprintf("points_over_%g", band.Threshold), band.Points)
			if band.Points == 0 {
				continue
			}
			sc.Record(fmt.Sprintf("rmse_over_%g", band.Threshold), band.RMSE)
			sc.Record(fmt.Sprintf("mae_over_%g", band.Threshold), band.MAE)
		}

		for i, artifact := range []signal.Artifact{result.Predicted, result.TravelVsMag, result.TravelVsPredicted} {
			if err := sc.OutputAt(i, artifact); err != nil {
				return err
			}
		}

		return nil
	}

	return pipeline.NewStep(name, []string{inMag, inTravel}, []string{outPredicted, outTravelVsMag, outTravelVsPred}, fn,
		append(opts, pipeline.WithArity(2, 3))...)
}
