package model

import "fmt"

// PlotKind selects how an artifact is drawn.
type PlotKind string

const (
	// PlotAuto lets the renderer pick from the artifact variant.
	PlotAuto    PlotKind = "auto"
	PlotLine    PlotKind = "line"
	PlotScatter PlotKind = "scatter"
	PlotNone    PlotKind = "none"
)

// PlotSpec asks the runner to render one workspace key after a step.
type PlotSpec struct {
	Key   string
	Kind  PlotKind
	Title string
}

type StepInfo struct {
	Index   int
	Name    string
	Inputs  []string
	Outputs []string
	Plots   []PlotSpec
}

// ID is the step identity used for caching and output folders.
func (s *StepInfo) ID() string {
	return fmt.Sprintf("%02d_%s", s.Index, s.Name)
}

var (
	StartStep = &StepInfo{Index: -1, Name: "start"}
	EndStep   = &StepInfo{Index: -1, Name: "end"}
)
