package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/pipeline/cache"
	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/pipeline/render"
	"github.com/askiada/go-travel/pkg/signal"
)

type chain struct {
	pipe    *pipeline.Pipeline
	doubles int
	triples int
}

func newChain(t *testing.T) *chain {
	t.Helper()

	c := &chain{}
	pipe, err := pipeline.New(
		scaleStep(t, "double", "raw", "doubled", 2, &c.doubles),
		scaleStep(t, "triple", "doubled", "tripled", 3, &c.triples),
	)
	require.NoError(t, err)
	c.pipe = pipe

	return c
}

func sourceWorkspace(t *testing.T) *pipeline.Workspace {
	t.Helper()

	ws := pipeline.NewWorkspace()
	require.NoError(t, ws.Put("raw", seriesOf(t, 1, 2, 3)))

	return ws
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	c := newChain(t)
	ws := sourceWorkspace(t)

	report, err := pipeline.NewRunner().Run(context.Background(), ws, c.pipe)
	require.NoError(t, err)

	tripled, err := ws.TimeSeries("tripled")
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 12, 18}, tripled.Column(0))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, "00_double", report.Steps[0].ID)
	assert.Equal(t, "01_triple", report.Steps[1].ID)

	factor, ok := report.Steps[1].Diagnostic("factor")
	require.True(t, ok)
	assert.InDelta(t, 3.0, factor, 0)
}

func TestRunnerNilArguments(t *testing.T) {
	t.Parallel()

	_, err := pipeline.NewRunner().Run(context.Background(), pipeline.NewWorkspace(), nil)
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.NewRunner().Run(context.Background(), nil, newChain(t).pipe)
	require.ErrorIs(t, err, pipeline.ErrWorkspaceMustBeSet)
}

func TestRunnerCacheHitSkipsComputation(t *testing.T) {
	t.Parallel()

	store, err := cache.NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := newChain(t)
	_, err = pipeline.NewRunner(pipeline.WithCache(store, false, true)).Run(ctx, sourceWorkspace(t), first.pipe)
	require.NoError(t, err)
	assert.Equal(t, 1, first.doubles)
	assert.Equal(t, 1, first.triples)

	_, found, err := store.Load(ctx, pipeline.SnapshotID)
	require.NoError(t, err)
	assert.True(t, found)

	second := newChain(t)
	ws := sourceWorkspace(t)
	report, err := pipeline.NewRunner(pipeline.WithCache(store, true, false)).Run(ctx, ws, second.pipe)
	require.NoError(t, err)

	assert.Equal(t, 0, second.doubles)
	assert.Equal(t, 0, second.triples)
	assert.Equal(t, 2, report.CacheHits())

	tripled, err := ws.TimeSeries("tripled")
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 12, 18}, tripled.Column(0))
	fs, err := tripled.SampleRate()
	require.NoError(t, err)
	assert.InDelta(t, 100, fs, 0)
}

func TestRunnerCorruptCacheIsRecomputed(t *testing.T) {
	t.Parallel()

	tests := map[string]func(t *testing.T, store *cache.DirStore){
		"garbage file": func(t *testing.T, store *cache.DirStore) {
			require.NoError(t, os.WriteFile(store.Path("00_double"), []byte("garbage"), 0o600))
		},
		"missing entry": func(t *testing.T, store *cache.DirStore) {
			blob := cache.NewBlob()
			require.NoError(t, blob.Add("other", signal.Scalar(1)))
			require.NoError(t, store.Save(context.Background(), "00_double", blob))
		},
		"shape mismatch": func(t *testing.T, store *cache.DirStore) {
			blob := cache.NewBlob()
			blob.Entries["doubled"] = cache.Entry{Kind: signal.KindTimeSeries, T: []float64{0}, X: []float64{1, 2}, Rows: 1, Cols: 3}
			require.NoError(t, store.Save(context.Background(), "00_double", blob))
		},
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := cache.NewDirStore(t.TempDir())
			require.NoError(t, err)
			corrupt(t, store)

			c := newChain(t)
			ws := sourceWorkspace(t)
			report, err := pipeline.NewRunner(pipeline.WithCache(store, true, false)).Run(context.Background(), ws, c.pipe)
			require.NoError(t, err)

			assert.Equal(t, 1, c.doubles)
			assert.Equal(t, 0, report.CacheHits())
			doubled, err := ws.TimeSeries("doubled")
			require.NoError(t, err)
			assert.Equal(t, []float64{2, 4, 6}, doubled.Column(0))
		})
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (*cache.Blob, bool, error) { return nil, false, nil }

func (failingStore) Save(context.Context, string, *cache.Blob) error { return assert.AnError }

func TestRunnerCacheWriteFailureIsFatal(t *testing.T) {
	t.Parallel()

	c := newChain(t)
	report, err := pipeline.NewRunner(pipeline.WithCache(failingStore{}, true, true)).Run(context.Background(), sourceWorkspace(t), c.pipe)
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, report.Steps)
	assert.Equal(t, 0, c.triples)
}

func TestRunnerMissingInput(t *testing.T) {
	t.Parallel()

	c := newChain(t)
	_, err := pipeline.NewRunner().Run(context.Background(), pipeline.NewWorkspace(), c.pipe)
	require.ErrorIs(t, err, pipeline.ErrMissingInput)

	var missing *pipeline.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "00_double", missing.Step)
	assert.Equal(t, []string{"raw"}, missing.Keys)
	assert.Equal(t, 0, c.doubles)
}

func TestRunnerContractViolations(t *testing.T) {
	t.Parallel()

	tests := map[string]pipeline.Func{
		"undeclared read": func(_ context.Context, sc *pipeline.Scope) error {
			_, err := sc.Input("secret")

			return err
		},
		"undeclared write": func(_ context.Context, sc *pipeline.Scope) error {
			return sc.Output("elsewhere", signal.Scalar(1))
		},
		"double write": func(_ context.Context, sc *pipeline.Scope) error {
			err := sc.Output("out", signal.Scalar(1))
			if err != nil {
				return err
			}

			return sc.Output("out", signal.Scalar(2))
		},
		"missing output": func(context.Context, *pipeline.Scope) error {
			return nil
		},
		"index out of range": func(_ context.Context, sc *pipeline.Scope) error {
			return sc.OutputAt(3, signal.Scalar(1))
		},
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			step, err := pipeline.NewStep("bad", []string{"raw"}, []string{"out"}, fn)
			require.NoError(t, err)
			pipe, err := pipeline.New(step)
			require.NoError(t, err)

			ws := sourceWorkspace(t)
			require.NoError(t, ws.Put("secret", signal.Scalar(42)))

			_, err = pipeline.NewRunner().Run(context.Background(), ws, pipe)
			require.ErrorIs(t, err, pipeline.ErrContractViolation)
			assert.False(t, ws.Has("out"))
		})
	}
}

func TestRunnerStepErrorStopsRun(t *testing.T) {
	t.Parallel()

	calls := 0
	failing, err := pipeline.NewStep("fail", []string{"raw"}, []string{"x"}, func(context.Context, *pipeline.Scope) error {
		return pipeline.ErrDegenerateFit
	})
	require.NoError(t, err)
	pipe, err := pipeline.New(failing, scaleStep(t, "after", "x", "y", 2, &calls))
	require.NoError(t, err)

	_, err = pipeline.NewRunner().Run(context.Background(), sourceWorkspace(t), pipe)
	require.ErrorIs(t, err, pipeline.ErrDegenerateFit)
	assert.Contains(t, err.Error(), "00_fail")
	assert.Equal(t, 0, calls)
}

func TestRunnerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newChain(t)
	_, err := pipeline.NewRunner().Run(ctx, sourceWorkspace(t), c.pipe)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.doubles)
}

type recordingRenderer struct {
	requests []render.Request
	err      error
}

func (r *recordingRenderer) Render(_ context.Context, req render.Request) error {
	r.requests = append(r.requests, req)

	return r.err
}

func TestRunnerRenderFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	renderer := &recordingRenderer{err: assert.AnError}
	c := newChain(t)

	_, err := pipeline.NewRunner(pipeline.WithRenderer(renderer, "plots")).Run(context.Background(), sourceWorkspace(t), c.pipe)
	require.NoError(t, err)

	require.Len(t, renderer.requests, 2)
	assert.Equal(t, "00_double", renderer.requests[0].StepID)
	assert.Equal(t, "doubled", renderer.requests[0].Key)
	assert.Equal(t, model.PlotLine, renderer.requests[0].Kind)
	assert.Equal(t, "plots", renderer.requests[0].Dir)
}

func TestRunnerRendersDeclaredPlots(t *testing.T) {
	t.Parallel()

	step, err := pipeline.NewStep("fit", []string{"raw"}, []string{"scalar", "scatter", "line"},
		func(_ context.Context, sc *pipeline.Scope) error {
			scatter, err := signal.ArrayFromRows([][]float64{{1, 2}, {2, 4}})
			if err != nil {
				return err
			}
			ts, err := pipeline.FetchInput[*signal.TimeSeries](sc, 0)
			if err != nil {
				return err
			}

			for key, artifact := range map[string]signal.Artifact{"scalar": signal.Scalar(1), "scatter": scatter, "line": ts} {
				err := sc.Output(key, artifact)
				if err != nil {
					return err
				}
			}

			return nil
		},
		pipeline.WithPlots(model.PlotSpec{Key: "scatter", Title: "fit quality"}, model.PlotSpec{Key: "scalar"}),
	)
	require.NoError(t, err)
	pipe, err := pipeline.New(step)
	require.NoError(t, err)

	renderer := &recordingRenderer{}
	_, err = pipeline.NewRunner(pipeline.WithRenderer(renderer, t.TempDir())).Run(context.Background(), sourceWorkspace(t), pipe)
	require.NoError(t, err)

	require.Len(t, renderer.requests, 1)
	assert.Equal(t, "scatter", renderer.requests[0].Key)
	assert.Equal(t, "fit quality", renderer.requests[0].Title)
	assert.Equal(t, model.PlotScatter, renderer.requests[0].Kind)
}

type recordingHook struct {
	calls []string
}

func (h *recordingHook) New() error {
	h.calls = append(h.calls, "new")

	return nil
}

func (h *recordingHook) PrepareStep(parents []*model.StepInfo, step *model.StepInfo) error {
	names := make([]string, 0, len(parents))
	for _, parent := range parents {
		names = append(names, parent.ID())
	}
	h.calls = append(h.calls, fmt.Sprintf("prepare %s %v", step.ID(), names))

	return nil
}

func (h *recordingHook) OnStepDone(step *model.StepInfo, _ time.Duration, cacheHit bool) error {
	h.calls = append(h.calls, fmt.Sprintf("done %s %t", step.ID(), cacheHit))

	return nil
}

func (h *recordingHook) Finish() error {
	h.calls = append(h.calls, "finish")

	return nil
}

func TestRunnerHooks(t *testing.T) {
	t.Parallel()

	hook := &recordingHook{}
	c := newChain(t)

	_, err := pipeline.NewRunner(pipeline.WithHooks(hook), pipeline.WithRunID("run")).Run(context.Background(), sourceWorkspace(t), c.pipe)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"new",
		"prepare 00_double []",
		"prepare 01_triple [00_double]",
		"done 00_double false",
		"done 01_triple false",
		"finish",
	}, hook.calls)
}

func TestRunnerWithSQLiteCache(t *testing.T) {
	t.Parallel()

	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	_, err = pipeline.NewRunner(pipeline.WithCache(store, true, true)).Run(ctx, sourceWorkspace(t), newChain(t).pipe)
	require.NoError(t, err)

	c := newChain(t)
	report, err := pipeline.NewRunner(pipeline.WithCache(store, true, true)).Run(ctx, sourceWorkspace(t), c.pipe)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CacheHits())
	assert.Equal(t, 0, c.doubles)
}
