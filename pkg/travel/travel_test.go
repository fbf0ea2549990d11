package travel_test

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
	"github.com/askiada/go-travel/pkg/travel"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func series(t *testing.T, rows [][]float64, opts ...signal.Option) *signal.TimeSeries {
	t.Helper()

	times := make([]float64, len(rows))
	for i := range times {
		times[i] = float64(i) * 0.01
	}

	ts, err := signal.FromRows(times, rows, opts...)
	require.NoError(t, err)

	return ts
}

func repeat(rows [][]float64, v []float64, n int) [][]float64 {
	for range n {
		rows = append(rows, v)
	}

	return rows
}

func TestRelativeAccel(t *testing.T) {
	t.Parallel()

	// quarter turn around z
	r := mat.NewDense(3, 3, []float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	a := series(t, [][]float64{{1, 1, 9.81}, {0, 2, 9.81}}, signal.WithFrame("lis1"), signal.WithUnits("m/s^2"))
	b := series(t, [][]float64{{1, 0, 9.81}, {2, 0, 9.81}}, signal.WithFrame("lis2"), signal.WithUnits("m/s^2"),
		signal.WithMeta(signal.Meta{signal.MetaSampleRate: 100.0, "sensor_id": "lis2"}))

	bInA, rel, err := travel.RelativeAccel(a, b, r)
	require.NoError(t, err)

	assert.True(t, cmp.Equal([]float64{0, 1, 9.81}, bInA.Row(0), approx))
	assert.True(t, cmp.Equal([]float64{0, 2, 9.81}, bInA.Row(1), approx))
	assert.True(t, cmp.Equal([]float64{1, 0, 0}, rel.Row(0), approx))
	assert.True(t, cmp.Equal([]float64{0, 0, 0}, rel.Row(1), approx))

	for _, ts := range []*signal.TimeSeries{bInA, rel} {
		assert.Equal(t, "lis1", ts.Frame())
		assert.Equal(t, "m/s^2", ts.Units())
		assert.Equal(t, a.Times(), ts.Times())
		applied, ok := ts.MetaValue(travel.MetaRotationApplied)
		require.True(t, ok)
		assert.Equal(t, true, applied)
		id, _ := ts.MetaValue("sensor_id")
		assert.Equal(t, "lis2", id)
	}
}

func TestRelativeAccelMismatch(t *testing.T) {
	t.Parallel()

	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	a := series(t, [][]float64{{1, 1, 1}, {1, 1, 1}})

	tests := map[string]struct {
		b *signal.TimeSeries
		r mat.Matrix
	}{
		"length":   {b: series(t, [][]float64{{1, 1, 1}}), r: identity},
		"channels": {b: series(t, [][]float64{{1, 1}, {1, 1}}), r: identity},
		"rotation": {b: series(t, [][]float64{{1, 1, 1}, {1, 1, 1}}), r: mat.NewDense(2, 2, nil)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, err := travel.RelativeAccel(a, tt.b, tt.r)
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
		})
	}
}

// compressions builds one strong chunk along (-6, -3, 0), its rebound and two weak chunks, with
// a partial trailing chunk. The raw mean is zero before offset is added.
func compressions(offset []float64) [][]float64 {
	var rows [][]float64
	rows = repeat(rows, []float64{-6, -3, 0}, 10)
	rows = repeat(rows, []float64{6, 3, 0}, 10)
	rows = repeat(rows, []float64{0, 0, 1}, 10)
	rows = repeat(rows, []float64{0, 0, -1}, 10)
	rows = repeat(rows, []float64{0, 0, 0}, 5)

	for i, row := range rows {
		shifted := make([]float64, len(row))
		for j := range row {
			shifted[j] = row[j] + offset[j]
		}
		rows[i] = shifted
	}

	return rows
}

func TestExtractTravelVector(t *testing.T) {
	t.Parallel()

	want := signal.Normalize([]float64{-6, -3, 0})

	tests := map[string]struct {
		offset []float64
	}{
		"centred":     {offset: []float64{0, 0, 0}},
		"with offset": {offset: []float64{1, -2, 9.81}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			vec, scatter, err := travel.ExtractTravelVector(series(t, compressions(tt.offset)), travel.DefaultVectorConfig())
			require.NoError(t, err)

			assert.True(t, cmp.Equal(want, vec, cmpopts.EquateApprox(0, 1e-6)), cmp.Diff(want, vec))
			assert.InDelta(t, 1, math.Sqrt(vec[0]*vec[0]+vec[1]*vec[1]+vec[2]*vec[2]), 1e-12)

			rows, cols := scatter.Dims()
			assert.Equal(t, 1, rows)
			assert.Equal(t, 4, cols)
			assert.InDelta(t, math.Sqrt(45), scatter.At(0, 0), 1e-6)
			assert.True(t, cmp.Equal([]float64{-6, -3, 0}, scatter.Row(0)[1:], cmpopts.EquateApprox(0, 1e-6)))
		})
	}
}

func TestExtractTravelVectorDegenerate(t *testing.T) {
	t.Parallel()

	still := series(t, repeat(nil, []float64{0, 0, 9.81}, 40))
	_, _, err := travel.ExtractTravelVector(still, travel.DefaultVectorConfig())
	require.ErrorIs(t, err, pipeline.ErrDegenerateFit)

	// strong chunks pointing the wrong way are not compressions
	var rows [][]float64
	rows = repeat(rows, []float64{6, 0, 0}, 10)
	rows = repeat(rows, []float64{-1, 0, 0}, 60)
	_, _, err = travel.ExtractTravelVector(series(t, rows), travel.DefaultVectorConfig())
	require.ErrorIs(t, err, pipeline.ErrDegenerateFit)

	_, _, err = travel.ExtractTravelVector(still, travel.VectorConfig{ChunkSize: 0, Threshold: 1})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestProject(t *testing.T) {
	t.Parallel()

	ts := series(t, [][]float64{{1, 2, 3}, {-1, 0, 4}}, signal.WithUnits("m/s^2"))

	projected, err := travel.Project(ts, []float64{0, 0, 1})
	require.NoError(t, err)

	rows, cols := projected.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, []float64{3, 4}, projected.Column(0))
	assert.Equal(t, "m/s^2", projected.Units())
	vec, ok := projected.MetaValue(travel.MetaTravelVector)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 1}, vec)

	_, err = travel.Project(ts, []float64{1, 0})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestAngleToTravel(t *testing.T) {
	t.Parallel()

	cfg := travel.DefaultAngleConfig()
	top := math.Acos(cfg.TopAdjacent / cfg.Hypotenuse)

	// 19 samples at rest, one with the linkage at a right angle
	angles := make([]float64, 20)
	for i := range angles {
		angles[i] = 1
	}
	angles[7] = 1 + top - math.Pi/2
	times := make([]float64, len(angles))
	for i := range times {
		times[i] = float64(i) / 100
	}
	angle, err := signal.FromColumn(times, angles, signal.WithUnits("rad"), signal.WithFrame("as5600"))
	require.NoError(t, err)

	travelled, err := travel.AngleToTravel(angle, cfg)
	require.NoError(t, err)

	assert.Equal(t, "mm", travelled.Units())
	assert.Equal(t, "as5600", travelled.Frame())
	assert.InDelta(t, 0, travelled.At(0, 0), 1e-9)
	assert.InDelta(t, 2*cfg.TopAdjacent, travelled.At(7, 0), 1e-9)

	_, err = travel.AngleToTravel(angle, travel.AngleConfig{Hypotenuse: 100, TopAdjacent: 120, ZeroPercentile: 95})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestTravelSteps(t *testing.T) {
	t.Parallel()

	identity, err := signal.NewArray(mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	require.NoError(t, err)

	still := repeat(nil, []float64{0, 0, 9.81}, 45)
	gravity := []float64{0, 0, 9.81}
	moving := compressions(gravity)

	ws := pipeline.NewWorkspace()
	require.NoError(t, ws.Put("accel/lis1", series(t, moving)))
	require.NoError(t, ws.Put("accel/lis2", series(t, still)))
	require.NoError(t, ws.Put("rotation", identity))

	relStep, err := travel.RelativeAccelStep("relative_accel", "accel/lis1", "accel/lis2", "rotation", "accel/lis2_in_lis1", "accel/relative")
	require.NoError(t, err)
	vecStep, err := travel.TravelVectorStep("travel_vector", "accel/relative", "travel_vector", "mags_vs_means", travel.DefaultVectorConfig())
	require.NoError(t, err)
	projStep, err := travel.ProjectStep("project_accel", "accel/relative", "travel_vector", "accel/projected")
	require.NoError(t, err)

	pipe, err := pipeline.New(relStep, vecStep, projStep)
	require.NoError(t, err)

	report, err := pipeline.NewRunner().Run(context.Background(), ws, pipe)
	require.NoError(t, err)
	require.Len(t, report.Steps, 3)

	kept, ok := report.Steps[1].Diagnostic("kept_chunks")
	require.True(t, ok)
	assert.Equal(t, 1, kept)

	vector, err := ws.Array("travel_vector")
	require.NoError(t, err)
	rows, cols := vector.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 3, cols)

	projected, err := ws.TimeSeries("accel/projected")
	require.NoError(t, err)
	assert.Equal(t, 45, projected.Len())
	// the first chunk is a pure compression along the travel vector
	assert.InDelta(t, math.Sqrt(45), projected.At(0, 0), 1e-6)
}
