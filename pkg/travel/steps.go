package travel

import (
	"context"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// RelativeAccelStep reads a, b and the rotation and writes b in the frame of a, then a − R·b.
func RelativeAccelStep(name, inA, inB, inRotation, outBInA, outRel string, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		a, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}
		b, err := pipeline.FetchInput[*signal.TimeSeries](sc, 1)
		if err != nil {
			return err
		}
		rotation, err := pipeline.FetchInput[*signal.Array](sc, 2)
		if err != nil {
			return err
		}

		bInA, rel, err := RelativeAccel(a, b, rotation.Matrix())
		if err != nil {
			return err
		}

		if err := sc.OutputAt(0, bInA); err != nil {
			return err
		}

		return sc.OutputAt(1, rel)
	}

	return pipeline.NewStep(name, []string{inA, inB, inRotation}, []string{outBInA, outRel}, fn,
		append(opts, pipeline.WithArity(3, 2))...)
}

// TravelVectorStep writes the travel direction as a 1×D array and the chunk scatter.
func TravelVectorStep(name, in, outVector, outScatter string, cfg VectorConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		rel, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		vec, scatter, err := ExtractTravelVector(rel, cfg)
		if err != nil {
			return err
		}
		kept, _ := scatter.Dims()
		sc.Record("dc_offset", rel.Mean())
		sc.Record("kept_chunks", kept)
		sc.Record("travel_vector", vec)

		vector, err := signal.VectorArray(vec)
		if err != nil {
			return err
		}
		if err := sc.OutputAt(0, vector); err != nil {
			return err
		}

		return sc.OutputAt(1, scatter)
	}

	return pipeline.NewStep(name, []string{in}, []string{outVector, outScatter}, fn,
		append(opts, pipeline.WithArity(1, 2))...)
}

// ProjectStep projects a series onto a 1×D direction array.
func ProjectStep(name, in, inVector, out string, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		ts, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}
		vector, err := pipeline.FetchInput[*signal.Array](sc, 1)
		if err != nil {
			return err
		}

		projected, err := Project(ts, vector.Vector())
		if err != nil {
			return err
		}
		sc.Record("mean", projected.Mean()[0])

		return sc.OutputAt(0, projected)
	}

	return pipeline.NewStep(name, []string{in, inVector}, []string{out}, fn,
		append(opts, pipeline.WithArity(2, 1))...)
}

func AngleTravelStep(name, in, out string, cfg AngleConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		angle, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		travel, err := AngleToTravel(angle, cfg)
		if err != nil {
			return err
		}

		return sc.OutputAt(0, travel)
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}
