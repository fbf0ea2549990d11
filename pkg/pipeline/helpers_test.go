package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

func seriesOf(t *testing.T, values ...float64) *signal.TimeSeries {
	t.Helper()

	times := make([]float64, len(values))
	for i := range times {
		times[i] = float64(i) * 0.01
	}

	ts, err := signal.FromColumn(times, values, signal.WithMeta(signal.Meta{signal.MetaSampleRate: 100.0}))
	require.NoError(t, err)

	return ts
}

// scaleStep multiplies its only input by factor and counts its invocations.
func scaleStep(t *testing.T, name, in, out string, factor float64, calls *int) *pipeline.Step {
	t.Helper()

	step, err := pipeline.NewStep(name, []string{in}, []string{out}, func(_ context.Context, sc *pipeline.Scope) error {
		if calls != nil {
			*calls++
		}

		ts, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
		if err != nil {
			return err
		}

		values := ts.Column(0)
		for i := range values {
			values[i] *= factor
		}
		scaled, err := signal.FromColumn(ts.Times(), values, signal.WithMeta(ts.Meta()))
		if err != nil {
			return err
		}
		sc.Record("factor", factor)

		return sc.Output(out, scaled)
	}, pipeline.WithArity(1, 1))
	require.NoError(t, err)

	return step
}

func noop(context.Context, *pipeline.Scope) error { return nil }
