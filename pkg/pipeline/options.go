package pipeline

import (
	"log/slog"

	"github.com/askiada/go-travel/pkg/pipeline/cache"
	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/pipeline/render"
)

type StepOption func(s *Step)

// WithPlots asks the runner to render the given keys, inputs or outputs, after the step.
func WithPlots(plots ...model.PlotSpec) StepOption {
	return func(s *Step) {
		s.plots = append(s.plots, plots...)
	}
}

// WithArity fixes the number of inputs and outputs the computation expects.
func WithArity(inputs, outputs int) StepOption {
	return func(s *Step) {
		s.arity = true
		s.inArity = inputs
		s.outArity = outputs
	}
}

type RunnerOption func(r *Runner)

// WithCache enables reading and/or writing step outputs from store.
func WithCache(store cache.Store, read, write bool) RunnerOption {
	return func(r *Runner) {
		r.store = store
		r.readCache = read
		r.writeCache = write
	}
}

// WithRenderer draws step outputs under dir.
func WithRenderer(renderer render.Renderer, dir string) RunnerOption {
	return func(r *Runner) {
		r.renderer = renderer
		r.renderDir = dir
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHooks registers pipeline options called while the pipeline runs.
func WithHooks(hooks ...model.PipelineOption) RunnerOption {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(runID string) RunnerOption {
	return func(r *Runner) {
		r.runID = runID
	}
}
