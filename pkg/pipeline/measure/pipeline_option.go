package measure

import (
	"time"

	"github.com/askiada/go-travel/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStep.Name)
	pm.AddMetric(model.EndStep.Name)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_ []*model.StepInfo, step *model.StepInfo) error {
	pm.AddMetric(step.ID())

	return nil
}

func (pm *pipelineMeasure) OnStepDone(step *model.StepInfo, elapsed time.Duration, cacheHit bool) error {
	mt := pm.AddMetric(step.ID())
	mt.AddDuration(elapsed, cacheHit)
	mt.SetTotalDuration(time.Since(pm.startTime))

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.AddMetric(model.EndStep.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure records step durations and cache hits into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
