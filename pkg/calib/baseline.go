package calib

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// BaselineConfig selects the still windows of the magnetometer baseline.
type BaselineConfig struct {
	StillSeconds float64
	// StillAccelMax is the largest absolute acceleration of a still window, in m/s².
	StillAccelMax float64
}

func DefaultBaselineConfig() BaselineConfig {
	return BaselineConfig{StillSeconds: 0.1, StillAccelMax: 0.5}
}

// Baseline is the magnetometer reading above which the sensor is considered to move.
type Baseline struct {
	Value        float64
	Median       float64
	Std          float64
	StillWindows int
}

// Magnitudes returns the values of a single-channel series or the row norms otherwise.
func Magnitudes(ts *signal.TimeSeries) []float64 {
	if _, cols := ts.Dims(); cols == 1 {
		return ts.Column(0)
	}

	return ts.Norms()
}

// samples converts a duration to a sample count at fs.
func samples(seconds, fs float64) (int, error) {
	n := int(math.Round(seconds * fs))
	if n < 1 {
		return 0, errors.Wrapf(pipeline.ErrDegenerateFit, "%g s at %g Hz is less than a sample", seconds, fs)
	}

	return n, nil
}

// MagBaseline returns the median plus the population standard deviation of the magnetometer over
// every still window. Windows are consecutive and do not overlap.
func MagBaseline(mag, accel *signal.TimeSeries, cfg BaselineConfig) (Baseline, error) {
	if mag.Len() != accel.Len() {
		return Baseline{}, errors.Wrapf(pipeline.ErrConfiguration, "%d magnetometer samples against %d", mag.Len(), accel.Len())
	}

	fs, err := mag.SampleRate()
	if err != nil {
		return Baseline{}, err
	}
	stillLen, err := samples(cfg.StillSeconds, fs)
	if err != nil {
		return Baseline{}, err
	}

	mags := Magnitudes(mag)
	windows := 0
	var still []float64
	for i := 0; i < mag.Len()-stillLen; i += stillLen {
		if maxAbsRows(accel, i, i+stillLen) >= cfg.StillAccelMax {
			continue
		}
		windows++
		still = append(still, mags[i:i+stillLen]...)
	}

	if windows == 0 {
		return Baseline{}, errors.Wrapf(pipeline.ErrDegenerateFit, "no window of %d samples below %g", stillLen, cfg.StillAccelMax)
	}

	median := signal.Median(still)
	std := signal.PopStd(still)

	return Baseline{
		Value:        median + std,
		Median:       median,
		Std:          std,
		StillWindows: windows,
	}, nil
}

func maxAbsRows(ts *signal.TimeSeries, i0, i1 int) float64 {
	peak := 0.0
	for i := i0; i < i1; i++ {
		row := ts.Row(i)
		peak = max(peak, floats.Max(row), -floats.Min(row))
	}

	return peak
}
