package calib

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// firstDt is the time step assumed before the first sample.
const firstDt = 0.01

// Direction of a detector window.
const (
	Forward = 1
	Mirror  = -1
)

// DetectorConfig holds the calibration window thresholds.
type DetectorConfig struct {
	StillSeconds  float64
	BumpSeconds   float64
	StrideSeconds float64
	// StillAccelMax bounds the scaled acceleration of the still part.
	StillAccelMax float64
	// BumpMagDelta is how far the bump must rise above the still magnetometer mean.
	BumpMagDelta float64
	// MinDisplacement is the smallest integrated displacement, in scaled units.
	MinDisplacement float64
	// Skips is the number of positions skipped after a match.
	Skips int
	// AccelScale converts the first accelerometer channel, m/s² to mm/s² by default.
	AccelScale float64
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StillSeconds:    0.1,
		BumpSeconds:     0.3,
		StrideSeconds:   0.05,
		StillAccelMax:   1000,
		BumpMagDelta:    1000,
		MinDisplacement: 20,
		Skips:           3,
		AccelScale:      1000,
	}
}

// Detector finds windows that start still and then move the magnet a known distance.
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if cfg.StillSeconds <= 0 || cfg.BumpSeconds <= 0 || cfg.StrideSeconds <= 0 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "windows %g/%g/%g s", cfg.StillSeconds, cfg.BumpSeconds, cfg.StrideSeconds)
	}
	if cfg.Skips < 0 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "skips %d", cfg.Skips)
	}

	return &Detector{cfg: cfg}, nil
}

// Events holds co-indexed detections. Row k of each array describes event k.
type Events struct {
	// Displacement is the double integral of the bump acceleration, events × bump samples.
	Displacement *signal.Array
	// Mag is the bump magnetometer trace, events × bump samples.
	Mag *signal.Array
	// Spans rows are [start, stop, direction]: the window visits start, start+direction, ... up to
	// stop excluded.
	Spans *signal.Array
}

func (e *Events) Len() int {
	rows, _ := e.Spans.Dims()

	return rows
}

type windowLens struct {
	still, bump, stride int
}

// Detect scans mag and accel for calibration windows. Every position is tried forward first and
// then mirrored; the first match ends the position and skips the next Skips positions.
func (d *Detector) Detect(mag, accel *signal.TimeSeries, baseline float64) (*Events, error) {
	n := mag.Len()
	if accel.Len() != n {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "%d magnetometer samples against %d", n, accel.Len())
	}

	lens, err := d.lens(mag)
	if err != nil {
		return nil, err
	}
	chunkLen := lens.still + lens.bump

	mags := Magnitudes(mag)
	acc := accel.Column(0)
	floats.Scale(d.cfg.AccelScale, acc)
	dt := timeSteps(mag.Times())

	var disps, bumps, spans [][]float64
	skip := 0
	window := make([]int, chunkLen)
	for i := 0; i < n-chunkLen; i += lens.stride {
		if skip > 0 {
			skip--

			continue
		}

		for _, dir := range []int{Forward, Mirror} {
			start := i
			if dir == Mirror {
				start = i + chunkLen
			}
			for k := range window {
				window[k] = start + dir*k
			}

			disp, bump, ok := d.evaluate(window, lens.still, mags, acc, dt, baseline)
			if !ok {
				continue
			}

			disps = append(disps, disp)
			bumps = append(bumps, bump)
			spans = append(spans, []float64{float64(start), float64(start + dir*chunkLen), float64(dir)})
			skip = d.cfg.Skips

			break
		}
	}

	if len(spans) == 0 {
		return nil, errors.Wrapf(pipeline.ErrDegenerateFit, "no calibration window in %d samples", n)
	}

	return events(disps, bumps, spans)
}

func (d *Detector) lens(mag *signal.TimeSeries) (windowLens, error) {
	fs, err := mag.SampleRate()
	if err != nil {
		return windowLens{}, err
	}

	var lens windowLens
	for _, c := range []struct {
		seconds float64
		n       *int
	}{
		{d.cfg.StillSeconds, &lens.still},
		{d.cfg.BumpSeconds, &lens.bump},
		{d.cfg.StrideSeconds, &lens.stride},
	} {
		if *c.n, err = samples(c.seconds, fs); err != nil {
			return windowLens{}, err
		}
	}

	return lens, nil
}

// evaluate checks one window and returns its displacement and bump magnetometer traces.
func (d *Detector) evaluate(window []int, stillLen int, mags, acc, dt []float64, baseline float64) ([]float64, []float64, bool) {
	still, bump := window[:stillLen], window[stillLen:]

	stillMags := gather(mags, still)
	stillMean := stat.Mean(stillMags, nil)
	if stillMean > baseline {
		return nil, nil, false
	}

	stillAcc := gather(acc, still)
	if max(floats.Max(stillAcc), -floats.Min(stillAcc)) > d.cfg.StillAccelMax {
		return nil, nil, false
	}

	bumpMags := gather(mags, bump)
	if floats.Max(bumpMags) <= stillMean+d.cfg.BumpMagDelta {
		return nil, nil, false
	}

	disp := make([]float64, len(bump))
	velocity, position := 0.0, 0.0
	for k, j := range bump {
		velocity += acc[j] * dt[j]
		position += velocity * dt[j]
		disp[k] = position
	}
	if floats.Max(disp) < d.cfg.MinDisplacement {
		return nil, nil, false
	}

	return disp, bumpMags, true
}

func gather(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = x[i]
	}

	return out
}

func timeSteps(t []float64) []float64 {
	dt := make([]float64, len(t))
	dt[0] = firstDt
	for i := 1; i < len(t); i++ {
		dt[i] = t[i] - t[i-1]
	}

	return dt
}

func events(disps, bumps, spans [][]float64) (*Events, error) {
	disp, err := signal.ArrayFromRows(disps)
	if err != nil {
		return nil, err
	}
	mag, err := signal.ArrayFromRows(bumps)
	if err != nil {
		return nil, err
	}
	span, err := signal.ArrayFromRows(spans)
	if err != nil {
		return nil, err
	}

	return &Events{Displacement: disp, Mag: mag, Spans: span}, nil
}
