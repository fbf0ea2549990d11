package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/cache"
	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/pipeline/render"
	"github.com/askiada/go-travel/pkg/signal"
)

// SnapshotID is the cache identity of the blob holding the whole workspace after a run.
const SnapshotID = "all"

// Runner executes a pipeline step by step against a workspace.
type Runner struct {
	store      cache.Store
	readCache  bool
	writeCache bool
	renderer   render.Renderer
	renderDir  string
	logger     *slog.Logger
	hooks      []model.PipelineOption
	runID      string
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.store == nil {
		r.readCache = false
		r.writeCache = false
	}

	return r
}

// Run executes every step in order. The first failing step stops the run; the report then holds
// the steps completed so far.
func (r *Runner) Run(ctx context.Context, ws *Workspace, pipe *Pipeline) (*Report, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if ws == nil {
		return nil, ErrWorkspaceMustBeSet
	}

	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &Report{RunID: runID}
	logger := r.logger.With("run_id", runID)

	infos := make([]*model.StepInfo, len(pipe.steps))
	for idx, step := range pipe.steps {
		infos[idx] = step.info(idx)
	}

	err := r.prepare(pipe, infos)
	if err != nil {
		return report, err
	}

	for idx, step := range pipe.steps {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "run interrupted")
		}

		stepReport, err := r.runStep(ctx, logger, ws, step, infos[idx])
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, stepReport)

		for _, hook := range r.hooks {
			err := hook.OnStepDone(infos[idx], stepReport.Elapsed, stepReport.CacheHit)
			if err != nil {
				return report, errors.Wrapf(err, "step %s: unable to apply pipeline option", stepReport.ID)
			}
		}
	}

	if r.writeCache {
		r.snapshot(ctx, logger, ws)
	}

	for _, hook := range r.hooks {
		err := hook.Finish()
		if err != nil {
			return report, errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	logger.Info("run finished", "steps", len(report.Steps), "cache_hits", report.CacheHits())

	return report, nil
}

func (r *Runner) prepare(pipe *Pipeline, infos []*model.StepInfo) error {
	for _, hook := range r.hooks {
		err := hook.New()
		if err != nil {
			return errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	for idx, info := range infos {
		parents := make([]*model.StepInfo, 0, len(pipe.parents[idx]))
		for _, parent := range pipe.parents[idx] {
			parents = append(parents, infos[parent])
		}

		for _, hook := range r.hooks {
			err := hook.PrepareStep(parents, info)
			if err != nil {
				return errors.Wrapf(err, "step %s: unable to prepare pipeline option", info.ID())
			}
		}
	}

	return nil
}

func (r *Runner) runStep(ctx context.Context, logger *slog.Logger, ws *Workspace, step *Step, info *model.StepInfo) (StepReport, error) {
	id := info.ID()
	logger = logger.With("step", id)
	start := time.Now()
	stepReport := StepReport{ID: id}

	logger.Debug("step started", "inputs", step.inputs, "outputs", step.outputs)

	if r.readCache {
		hit, err := r.restore(ctx, ws, step, id)
		var corrupt *CacheCorruptionError
		switch {
		case errors.As(err, &corrupt):
			logger.Warn("ignoring cached outputs", "error", err)
		case err != nil:
			return stepReport, err
		}
		stepReport.CacheHit = hit
	}

	if stepReport.CacheHit {
		logger.Info("cache hit")
	} else {
		diagnostics, err := r.compute(ctx, ws, step, id)
		if err != nil {
			return stepReport, err
		}
		stepReport.Diagnostics = diagnostics

		for _, d := range diagnostics {
			logger.Info("diagnostic", "name", d.Name, "value", d.Value)
		}

		if r.writeCache {
			err := r.save(ctx, ws, step, id)
			if err != nil {
				return stepReport, err
			}
		}
	}

	if r.renderer != nil {
		r.render(ctx, logger, ws, step, id)
	}

	stepReport.Elapsed = time.Since(start)
	logger.Info("step done", "cache_hit", stepReport.CacheHit, "elapsed", stepReport.Elapsed)

	return stepReport, nil
}

// restore loads every output of step from the cache. Nothing is written to the workspace unless
// all outputs decode.
func (r *Runner) restore(ctx context.Context, ws *Workspace, step *Step, id string) (bool, error) {
	blob, found, err := r.store.Load(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, errors.Wrapf(err, "step %s", id)
		}

		return false, &CacheCorruptionError{Step: id, Err: err}
	}
	if !found {
		return false, nil
	}

	artifacts := make([]signal.Artifact, len(step.outputs))
	for i, key := range step.outputs {
		entry, ok := blob.Entries[key]
		if !ok {
			return false, &CacheCorruptionError{Step: id, Err: errors.Wrapf(cache.ErrCorrupt, "no entry for %s", key)}
		}

		artifacts[i], err = cache.Decode(entry)
		if err != nil {
			return false, &CacheCorruptionError{Step: id, Err: errors.Wrapf(err, "entry %s", key)}
		}
	}

	for i, key := range step.outputs {
		err := ws.Put(key, artifacts[i])
		if err != nil {
			return false, errors.Wrapf(err, "step %s", id)
		}
	}

	return true, nil
}

func (r *Runner) compute(ctx context.Context, ws *Workspace, step *Step, id string) ([]Diagnostic, error) {
	var missing []string
	for _, key := range step.inputs {
		if !ws.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingInputError{Step: id, Keys: missing}
	}

	sc := newScope(step, ws)

	err := step.fn(ctx, sc)
	if err != nil {
		return nil, errors.Wrapf(err, "step %s", id)
	}

	err = sc.verify()
	if err != nil {
		return nil, err
	}

	for _, key := range step.outputs {
		err := ws.Put(key, sc.outputs[key])
		if err != nil {
			return nil, errors.Wrapf(err, "step %s", id)
		}
	}

	return sc.Diagnostics(), nil
}

func (r *Runner) save(ctx context.Context, ws *Workspace, step *Step, id string) error {
	blob := cache.NewBlob()
	for _, key := range step.outputs {
		artifact, err := ws.Get(key)
		if err != nil {
			return errors.Wrapf(err, "step %s", id)
		}

		err = blob.Add(key, artifact)
		if err != nil {
			return errors.Wrapf(err, "step %s: unable to encode outputs", id)
		}
	}

	err := r.store.Save(ctx, id, blob)
	if err != nil {
		return errors.Wrapf(err, "step %s: unable to save outputs", id)
	}

	return nil
}

func (r *Runner) render(ctx context.Context, logger *slog.Logger, ws *Workspace, step *Step, id string) {
	plots := step.plots
	if len(plots) == 0 {
		for _, key := range step.outputs {
			plots = append(plots, model.PlotSpec{Key: key, Kind: model.PlotAuto})
		}
	}

	for _, plot := range plots {
		artifact, err := ws.Get(plot.Key)
		if err != nil {
			logger.Warn("unable to render", "key", plot.Key, "error", err)

			continue
		}

		kind := plot.Kind
		if kind == "" || kind == model.PlotAuto {
			kind = render.KindFor(artifact)
		}
		if kind == model.PlotNone {
			logger.Debug("nothing to render", "key", plot.Key, "kind", artifact.Kind())

			continue
		}

		err = r.renderer.Render(ctx, render.Request{
			StepID:   id,
			Key:      plot.Key,
			Title:    plot.Title,
			Kind:     kind,
			Artifact: artifact,
			Dir:      r.renderDir,
		})
		if err != nil {
			logger.Warn("unable to render", "key", plot.Key, "error", err)
		}
	}
}

// snapshot saves the whole workspace under SnapshotID. Failures are only logged.
func (r *Runner) snapshot(ctx context.Context, logger *slog.Logger, ws *Workspace) {
	blob := cache.NewBlob()
	for _, key := range ws.Keys() {
		artifact, _ := ws.Get(key)

		err := blob.Add(key, artifact)
		if err != nil {
			logger.Warn("skipping snapshot entry", "key", key, "error", err)
		}
	}

	err := r.store.Save(ctx, SnapshotID, blob)
	if err != nil {
		logger.Warn("unable to save workspace snapshot", "error", err)
	}
}
