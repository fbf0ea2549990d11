package pipeline

import "time"

// Report summarises a run.
type Report struct {
	RunID string
	Steps []StepReport
}

type StepReport struct {
	ID          string
	CacheHit    bool
	Elapsed     time.Duration
	Diagnostics []Diagnostic
}

// Step returns the report of the step with the given identity.
func (r *Report) Step(id string) (StepReport, bool) {
	for _, step := range r.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return StepReport{}, false
}

func (r *Report) CacheHits() int {
	hits := 0
	for _, step := range r.Steps {
		if step.CacheHit {
			hits++
		}
	}

	return hits
}

// Diagnostic returns the last value recorded under name.
func (s StepReport) Diagnostic(name string) (any, bool) {
	for i := len(s.Diagnostics) - 1; i >= 0; i-- {
		if s.Diagnostics[i].Name == name {
			return s.Diagnostics[i].Value, true
		}
	}

	return nil, false
}
