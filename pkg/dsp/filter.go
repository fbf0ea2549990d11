// Package dsp holds the signal conditioning steps: zero-phase filtering and chunking.
package dsp

import (
	"math"

	"github.com/pconstantinou/savitzkygolay"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// Band selects which part of the spectrum a filter keeps.
type Band string

const (
	LowPass  Band = "low"
	HighPass Band = "high"
)

// Spec configures a filter. A zero SampleRateHz means the rate is read from the series metadata.
type Spec struct {
	CutoffHz     float64
	Order        int
	Band         Band
	SampleRateHz float64
}

// Filter is a zero-phase filter: the output has the shape of the input and is not delayed.
type Filter interface {
	Apply(ts *signal.TimeSeries, spec Spec) (*signal.TimeSeries, error)
}

// SavitzkyGolay smooths each column with a least-squares polynomial over a sliding window whose
// length follows the cutoff. Spec.Order is the polynomial order. The window is symmetric, so the
// filter is zero-phase. High-pass output is the input minus its low-pass.
type SavitzkyGolay struct{}

func (SavitzkyGolay) Apply(ts *signal.TimeSeries, spec Spec) (*signal.TimeSeries, error) {
	if spec.Band != LowPass && spec.Band != HighPass {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "unknown band %q", spec.Band)
	}
	if spec.CutoffHz <= 0 || spec.Order < 0 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "cutoff %g Hz, order %d", spec.CutoffHz, spec.Order)
	}

	fs := spec.SampleRateHz
	if fs <= 0 {
		var err error
		fs, err = ts.SampleRate()
		if err != nil {
			return nil, errors.Wrap(pipeline.ErrConfiguration, err.Error())
		}
	}

	window, err := Window(fs, spec.CutoffHz, spec.Order, ts.Len())
	if err != nil {
		return nil, err
	}

	filter, err := savitzkygolay.NewFilter(window, 0, spec.Order)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build filter of window %d", window)
	}

	rows, cols := ts.Dims()
	out := mat.NewDense(rows, cols, nil)
	for j := range cols {
		column := ts.Column(j)

		smooth, err := filter.Process(column, ts.Times())
		if err != nil {
			return nil, errors.Wrapf(err, "unable to filter column %d", j)
		}
		if len(smooth) != rows {
			return nil, errors.Wrapf(signal.ErrLengthMismatch, "filter returned %d samples for %d", len(smooth), rows)
		}

		if spec.Band == HighPass {
			for i := range smooth {
				smooth[i] = column[i] - smooth[i]
			}
		}
		out.SetCol(j, smooth)
	}

	return ts.Derive(out)
}

// Window returns the odd window length closest to fs/cutoff, raised to at least order+2 and
// capped by the series length n.
func Window(fs, cutoff float64, order, n int) (int, error) {
	window := int(math.Round(fs / cutoff))
	if window%2 == 0 {
		window++
	}

	minWindow := order + 2
	if minWindow%2 == 0 {
		minWindow++
	}
	window = max(window, minWindow)

	if window > n {
		window = n
		if window%2 == 0 {
			window--
		}
	}
	if window < minWindow {
		return 0, errors.Wrapf(pipeline.ErrDegenerateFit, "%d samples cannot hold a window of %d", n, minWindow)
	}

	return window, nil
}

var _ Filter = SavitzkyGolay{}
