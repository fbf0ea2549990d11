package align

import (
	"context"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// FilterPairsStep reads two chunked series and writes the surviving pairs.
func FilterPairsStep(name, inA, inB, out string, cfg PairFilterConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		a, err := pipeline.FetchInput[*signal.ChunkedTimeSeries](sc, 0)
		if err != nil {
			return err
		}
		b, err := pipeline.FetchInput[*signal.ChunkedTimeSeries](sc, 1)
		if err != nil {
			return err
		}

		pairs, stats, err := FilterPairs(a, b, cfg)
		if err != nil {
			return err
		}

		sc.Record("jitter_rejects", stats.JitterRejects)
		sc.Record("diff_rejects", stats.DiffRejects)
		sc.Record("survivors", stats.Survivors)
		sc.Record("scale_mean", stats.ScaleMean)
		sc.Record("scale_std", stats.ScaleStd)

		return sc.OutputAt(0, pairs)
	}

	return pipeline.NewStep(name, []string{inA, inB}, []string{out}, fn, append(opts, pipeline.WithArity(2, 1))...)
}

// FilterColinearStep drops the pairs too close to the aggregate direction.
func FilterColinearStep(name, in, out string, cfg ColinearConfig, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		pairs, err := pipeline.FetchInput[signal.Pairs](sc, 0)
		if err != nil {
			return err
		}

		kept, err := FilterColinear(pairs, cfg)
		if err != nil {
			return err
		}
		sc.Record("kept", len(kept))
		sc.Record("total", len(pairs))

		return sc.OutputAt(0, kept)
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}

// RotationStep writes the 3×3 rotation mapping the B frame onto the A frame.
func RotationStep(name, in, out string, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	fn := func(_ context.Context, sc *pipeline.Scope) error {
		pairs, err := pipeline.FetchInput[signal.Pairs](sc, 0)
		if err != nil {
			return err
		}

		r, res, err := SolveRotation(pairs)
		if err != nil {
			return err
		}
		sc.Record("residual_median_deg", res.MedianDeg)
		sc.Record("residual_p90_deg", res.P90Deg)

		rotation, err := signal.NewArray(r)
		if err != nil {
			return err
		}

		return sc.OutputAt(0, rotation)
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}
