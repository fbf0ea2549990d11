package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStepOption

	// Finish runs after the pipeline is finished.
	Finish() error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
type pipelineStepOption interface {
	// PrepareStep runs before any step is executed. parents holds the steps producing one of the
	// step inputs; it is empty when the step only reads source keys.
	PrepareStep(parents []*StepInfo, step *StepInfo) error
	// OnStepDone runs once the step outputs are in the workspace.
	OnStepDone(step *StepInfo, elapsed time.Duration, cacheHit bool) error
}
