package dsp_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-travel/pkg/dsp"
	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

const fs = 100.0

func series(t *testing.T, n int, value func(i int) float64) *signal.TimeSeries {
	t.Helper()

	times := make([]float64, n)
	rows := make([][]float64, n)
	for i := range n {
		times[i] = float64(i) / fs
		rows[i] = []float64{value(i), 2 * value(i)}
	}

	ts, err := signal.FromRows(times, rows, signal.WithUnits("m/s^2"), signal.WithMeta(signal.Meta{signal.MetaSampleRate: fs}))
	require.NoError(t, err)

	return ts
}

func TestWindow(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fs, cutoff float64
		order, n   int
		want       int
		wantErr    error
	}{
		"odd ratio":        {fs: 1020, cutoff: 20, order: 3, n: 1000, want: 51},
		"even ratio":       {fs: 1000, cutoff: 25, order: 3, n: 1000, want: 41},
		"raised to order":  {fs: 100, cutoff: 50, order: 3, n: 1000, want: 5},
		"capped by length": {fs: 1000, cutoff: 1, order: 3, n: 100, want: 99},
		"too short":        {fs: 1000, cutoff: 20, order: 3, n: 4, wantErr: pipeline.ErrDegenerateFit},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := dsp.Window(tt.fs, tt.cutoff, tt.order, tt.n)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSavitzkyGolayConstant(t *testing.T) {
	t.Parallel()

	ts := series(t, 200, func(int) float64 { return 9.81 })
	filter := dsp.SavitzkyGolay{}

	low, err := filter.Apply(ts, dsp.Spec{CutoffHz: 10, Order: 2, Band: dsp.LowPass})
	require.NoError(t, err)
	high, err := filter.Apply(ts, dsp.Spec{CutoffHz: 10, Order: 2, Band: dsp.HighPass})
	require.NoError(t, err)

	rows, cols := low.Dims()
	assert.Equal(t, 200, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, "m/s^2", low.Units())
	for i := 11; i < rows-11; i++ {
		assert.InDelta(t, 9.81, low.At(i, 0), 1e-6)
		assert.InDelta(t, 19.62, low.At(i, 1), 1e-6)
		assert.InDelta(t, 0, high.At(i, 0), 1e-6)
	}
}

func TestSavitzkyGolaySmoothsJitter(t *testing.T) {
	t.Parallel()

	clean := func(i int) float64 { return math.Sin(2 * math.Pi * float64(i) / fs) }
	ts := series(t, 400, func(i int) float64 {
		if i%2 == 0 {
			return clean(i) + 0.5
		}

		return clean(i) - 0.5
	})

	low, err := dsp.SavitzkyGolay{}.Apply(ts, dsp.Spec{CutoffHz: 10, Order: 2, Band: dsp.LowPass})
	require.NoError(t, err)

	for i := 20; i < 380; i++ {
		assert.InDelta(t, clean(i), low.At(i, 0), 0.1, "sample %d", i)
	}
}

func TestSavitzkyGolayRejects(t *testing.T) {
	t.Parallel()

	ts := series(t, 50, func(i int) float64 { return float64(i) })
	noRate, err := signal.FromColumn(ts.Times(), ts.Column(0))
	require.NoError(t, err)

	tests := map[string]struct {
		ts   *signal.TimeSeries
		spec dsp.Spec
	}{
		"unknown band":   {ts: ts, spec: dsp.Spec{CutoffHz: 10, Order: 2, Band: "notch"}},
		"no cutoff":      {ts: ts, spec: dsp.Spec{Order: 2, Band: dsp.LowPass}},
		"no rate":        {ts: noRate, spec: dsp.Spec{CutoffHz: 10, Order: 2, Band: dsp.LowPass}},
		"negative order": {ts: ts, spec: dsp.Spec{CutoffHz: 10, Order: -1, Band: dsp.LowPass}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := dsp.SavitzkyGolay{}.Apply(tt.ts, tt.spec)
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
		})
	}
}

func TestFilterAndChunkSteps(t *testing.T) {
	t.Parallel()

	lowpass, err := dsp.FilterStep("lowpass_lis1", "accel/lis1", "accel_filt/lis1", dsp.SavitzkyGolay{},
		dsp.Spec{CutoffHz: 20, Order: 3, Band: dsp.LowPass})
	require.NoError(t, err)
	chunk, err := dsp.ChunkStep("chunk_lis1", "accel_filt/lis1", "accel_chunks/lis1", 0.25)
	require.NoError(t, err)
	pipe, err := pipeline.New(lowpass, chunk)
	require.NoError(t, err)

	ws := pipeline.NewWorkspace()
	require.NoError(t, ws.Put("accel/lis1", series(t, 110, func(int) float64 { return 1 })))

	report, err := pipeline.NewRunner().Run(context.Background(), ws, pipe)
	require.NoError(t, err)

	filtered, err := ws.TimeSeries("accel_filt/lis1")
	require.NoError(t, err)
	fc, ok := filtered.MetaValue("lowpass_lis1_fc_hz")
	require.True(t, ok)
	assert.InDelta(t, 20.0, fc, 0)
	btype, ok := filtered.MetaValue("lowpass_lis1_btype")
	require.True(t, ok)
	assert.Equal(t, "low", btype)

	chunked, err := ws.Chunked("accel_chunks/lis1")
	require.NoError(t, err)
	assert.Equal(t, 4, chunked.Len())
	assert.Equal(t, 25, chunked.SpanLen())
	assert.InDelta(t, 0.25, chunked.Meta()[dsp.MetaChunkSeconds], 0)

	chunks, ok := report.Steps[1].Diagnostic("chunks")
	require.True(t, ok)
	assert.Equal(t, 4, chunks)
}

func TestChunkStepRejects(t *testing.T) {
	t.Parallel()

	_, err := dsp.ChunkStep("chunk", "in", "out", 0)
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	_, err = dsp.FilterStep("lp", "in", "out", nil, dsp.Spec{})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	step, err := dsp.ChunkStep("chunk", "in", "out", 0.001)
	require.NoError(t, err)
	pipe, err := pipeline.New(step)
	require.NoError(t, err)

	ws := pipeline.NewWorkspace()
	require.NoError(t, ws.Put("in", series(t, 10, func(int) float64 { return 0 })))
	_, err = pipeline.NewRunner().Run(context.Background(), ws, pipe)
	require.ErrorIs(t, err, pipeline.ErrDegenerateFit)
}
