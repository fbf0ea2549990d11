package pipeline

import (
	"context"
	"slices"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/model"
)

// Func is the computation of a step. It must only depend on its inputs and the configuration it
// was built with.
type Func func(ctx context.Context, sc *Scope) error

// Step is a named computation reading input keys and writing output keys.
type Step struct {
	name    string
	inputs  []string
	outputs []string
	plots   []model.PlotSpec
	fn      Func

	arity    bool
	inArity  int
	outArity int
}

// NewStep validates a step declaration. Every key must be non-empty and appear once; a step
// cannot read a key it writes.
func NewStep(name string, inputs, outputs []string, fn Func, opts ...StepOption) (*Step, error) {
	step := &Step{
		name:    name,
		inputs:  slices.Clone(inputs),
		outputs: slices.Clone(outputs),
		fn:      fn,
	}
	for _, opt := range opts {
		opt(step)
	}

	err := step.validate()
	if err != nil {
		return nil, err
	}

	return step, nil
}

func (s *Step) validate() error {
	if s.name == "" {
		return errors.Wrap(ErrConfiguration, "step name must be set")
	}
	if s.fn == nil {
		return errors.Wrapf(ErrConfiguration, "step %s has no computation", s.name)
	}
	if len(s.outputs) == 0 {
		return errors.Wrapf(ErrConfiguration, "step %s declares no output", s.name)
	}

	seen := make(map[string]struct{}, len(s.inputs)+len(s.outputs))
	for _, key := range append(slices.Clone(s.inputs), s.outputs...) {
		if key == "" {
			return errors.Wrapf(ErrConfiguration, "step %s declares an empty key", s.name)
		}
		if _, ok := seen[key]; ok {
			return errors.Wrapf(ErrConfiguration, "step %s declares %s twice", s.name, key)
		}
		seen[key] = struct{}{}
	}

	if s.arity && (len(s.inputs) != s.inArity || len(s.outputs) != s.outArity) {
		return errors.Wrapf(ErrConfiguration, "step %s: %d inputs and %d outputs, want %d and %d",
			s.name, len(s.inputs), len(s.outputs), s.inArity, s.outArity)
	}

	for _, plot := range s.plots {
		if !slices.Contains(s.outputs, plot.Key) && !slices.Contains(s.inputs, plot.Key) {
			return errors.Wrapf(ErrConfiguration, "step %s plots %s which it neither reads nor writes", s.name, plot.Key)
		}
	}

	return nil
}

func (s *Step) Name() string { return s.name }

func (s *Step) Inputs() []string { return slices.Clone(s.inputs) }

func (s *Step) Outputs() []string { return slices.Clone(s.outputs) }

func (s *Step) Plots() []model.PlotSpec { return slices.Clone(s.plots) }

func (s *Step) info(index int) *model.StepInfo {
	return &model.StepInfo{
		Index:   index,
		Name:    s.name,
		Inputs:  s.Inputs(),
		Outputs: s.Outputs(),
		Plots:   s.Plots(),
	}
}
