package pipeline

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/signal"
)

// Diagnostic is a named value recorded by a step for the run report.
type Diagnostic struct {
	Name  string
	Value any
}

// Scope is the view of the workspace handed to a step computation. Reads are limited to declared
// inputs and writes to declared outputs. Writes are buffered until the step returns.
type Scope struct {
	step        *Step
	ws          Reader
	outputs     map[string]signal.Artifact
	diagnostics []Diagnostic
}

func newScope(step *Step, ws Reader) *Scope {
	return &Scope{
		step:    step,
		ws:      ws,
		outputs: make(map[string]signal.Artifact, len(step.outputs)),
	}
}

// Input reads a declared input.
func (s *Scope) Input(key string) (signal.Artifact, error) {
	if !slices.Contains(s.step.inputs, key) {
		return nil, errors.Wrapf(ErrContractViolation, "step %s reads undeclared key %s", s.step.name, key)
	}

	return s.ws.Get(key)
}

// Get is Input, so a Scope can be passed to Fetch.
func (s *Scope) Get(key string) (signal.Artifact, error) {
	return s.Input(key)
}

// Output writes a declared output.
func (s *Scope) Output(key string, artifact signal.Artifact) error {
	if !slices.Contains(s.step.outputs, key) {
		return errors.Wrapf(ErrContractViolation, "step %s writes undeclared key %s", s.step.name, key)
	}
	if _, ok := s.outputs[key]; ok {
		return errors.Wrapf(ErrContractViolation, "step %s writes %s twice", s.step.name, key)
	}
	if artifact == nil {
		return errors.Wrapf(ErrContractViolation, "step %s writes nil to %s", s.step.name, key)
	}

	s.outputs[key] = artifact

	return nil
}

// OutputAt writes the i-th declared output.
func (s *Scope) OutputAt(i int, artifact signal.Artifact) error {
	key, err := s.OutputKey(i)
	if err != nil {
		return err
	}

	return s.Output(key, artifact)
}

func (s *Scope) InputKey(i int) (string, error) {
	if i < 0 || i >= len(s.step.inputs) {
		return "", errors.Wrapf(ErrContractViolation, "step %s has no input %d", s.step.name, i)
	}

	return s.step.inputs[i], nil
}

func (s *Scope) OutputKey(i int) (string, error) {
	if i < 0 || i >= len(s.step.outputs) {
		return "", errors.Wrapf(ErrContractViolation, "step %s has no output %d", s.step.name, i)
	}

	return s.step.outputs[i], nil
}

// Record adds a diagnostic to the run report.
func (s *Scope) Record(name string, value any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Name: name, Value: value})
}

// Diagnostics returns the recorded diagnostics in order.
func (s *Scope) Diagnostics() []Diagnostic {
	return slices.Clone(s.diagnostics)
}

// verify checks every declared output was written.
func (s *Scope) verify() error {
	var missing []string
	for _, key := range s.step.outputs {
		if _, ok := s.outputs[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrContractViolation, "step %s did not write %v", s.step.name, missing)
	}

	return nil
}

// FetchInput reads the i-th declared input and checks its variant.
func FetchInput[T signal.Artifact](s *Scope, i int) (T, error) {
	var zero T

	key, err := s.InputKey(i)
	if err != nil {
		return zero, err
	}

	return Fetch[T](s, key)
}

var _ Reader = (*Scope)(nil)
