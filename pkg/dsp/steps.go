package dsp

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// MetaChunkSeconds is the metadata key holding the chunk duration.
const MetaChunkSeconds = "chunk_t_s"

// FilterStep filters in into out. The cutoff and band are added to the output metadata under
// <name>_fc_hz and <name>_btype.
func FilterStep(name, in, out string, filter Filter, spec Spec, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	if filter == nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "step %s has no filter", name)
	}

	fn := func(_ context.Context, sc *pipeline.Scope) error {
		ts, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		filtered, err := filter.Apply(ts, spec)
		if err != nil {
			return err
		}

		return sc.OutputAt(0, filtered.WithMeta(signal.Meta{
			name + "_fc_hz": spec.CutoffHz,
			name + "_btype": string(spec.Band),
		}))
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}

// ChunkStep splits in into spans of chunkSeconds.
func ChunkStep(name, in, out string, chunkSeconds float64, opts ...pipeline.StepOption) (*pipeline.Step, error) {
	if chunkSeconds <= 0 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "step %s: chunk duration %g s", name, chunkSeconds)
	}

	fn := func(_ context.Context, sc *pipeline.Scope) error {
		ts, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		fs, err := ts.SampleRate()
		if err != nil {
			return err
		}

		spanLen := int(math.Round(chunkSeconds * fs))
		if spanLen < 1 {
			return errors.Wrapf(pipeline.ErrDegenerateFit, "%g s at %g Hz is less than a sample", chunkSeconds, fs)
		}

		chunked, err := signal.NewChunked(ts, spanLen, signal.Meta{MetaChunkSeconds: chunkSeconds})
		if err != nil {
			return err
		}
		sc.Record("chunks", chunked.Len())
		sc.Record("span_len", spanLen)

		return sc.OutputAt(0, chunked)
	}

	return pipeline.NewStep(name, []string{in}, []string{out}, fn, append(opts, pipeline.WithArity(1, 1))...)
}
