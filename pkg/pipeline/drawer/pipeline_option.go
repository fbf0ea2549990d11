package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/measure"
	"github.com/askiada/go-travel/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()

	err := pd.AddStep(model.StartStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}
	err = pd.AddStep(model.EndStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStep(parents []*model.StepInfo, step *model.StepInfo) error {
	err := pd.AddStep(step.ID())
	if err != nil {
		return err
	}

	if len(parents) == 0 {
		return pd.AddLink(model.StartStep.Name, step.ID(), step.Inputs...)
	}

	for _, parent := range parents {
		err := pd.AddLink(parent.ID(), step.ID(), shared(parent.Outputs, step.Inputs)...)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) OnStepDone(*model.StepInfo, time.Duration, bool) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	leaves, err := pd.Leaves()
	if err != nil {
		return errors.Wrap(err, "unable to list leaves")
	}

	for _, leaf := range leaves {
		if leaf == model.EndStep.Name || leaf == model.StartStep.Name {
			continue
		}
		err := pd.AddLink(leaf, model.EndStep.Name)
		if err != nil {
			return err
		}
	}

	err = pd.SetTotalTime(model.EndStep.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

func shared(outputs, inputs []string) []string {
	var keys []string
	for _, in := range inputs {
		for _, out := range outputs {
			if in == out {
				keys = append(keys, in)
			}
		}
	}

	return keys
}

// PipelineDrawer draws the step graph once the pipeline is finished. measure is optional.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
