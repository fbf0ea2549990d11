package calib

import (
	"math"
	"slices"

	"github.com/SeanJxie/polygo"
	"github.com/openacid/slimarray/polyfit"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// Predictor evaluates a fitted curve.
type Predictor interface {
	Predict(x float64) float64
}

// Fitter fits y against x.
type Fitter interface {
	Fit(x, y []float64, degree int) (Predictor, error)
}

// PolyFitter fits least-squares polynomials.
type PolyFitter struct{}

var (
	_ Fitter    = PolyFitter{}
	_ Predictor = (*Polynomial)(nil)
)

// Polynomial is a polynomial fitted on x rescaled to [-1, 1].
type Polynomial struct {
	poly   *polygo.RealPolynomial
	coeffs []float64
	centre float64
	scale  float64
}

// Fit solves the least-squares polynomial of the given degree. At least degree+1 distinct x
// values are needed.
func (PolyFitter) Fit(x, y []float64, degree int) (Predictor, error) {
	if len(x) != len(y) {
		return nil, errors.Wrapf(signal.ErrLengthMismatch, "%d x for %d y", len(x), len(y))
	}
	if degree < 0 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "degree %d", degree)
	}

	distinct := slices.Compact(slices.Sorted(slices.Values(x)))
	if len(distinct) < degree+1 {
		return nil, errors.Wrapf(pipeline.ErrDegenerateFit, "%d distinct points for degree %d", len(distinct), degree)
	}

	lo, hi := distinct[0], distinct[len(distinct)-1]
	centre, scale := (lo+hi)/2, (hi-lo)/2
	if scale == 0 {
		scale = 1
	}

	scaled := make([]float64, len(x))
	for i, v := range x {
		scaled[i] = (v - centre) / scale
	}

	coeffs := polyfit.NewFit(scaled, y, degree).Solve()
	if len(coeffs) == 0 || floats.HasNaN(coeffs) || slices.ContainsFunc(coeffs, func(c float64) bool { return math.IsInf(c, 0) }) {
		return nil, errors.Wrap(pipeline.ErrDegenerateFit, "polynomial fit did not converge")
	}

	poly, err := polygo.NewRealPolynomial(coeffs)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build polynomial")
	}

	return &Polynomial{poly: poly, coeffs: coeffs, centre: centre, scale: scale}, nil
}

func (p *Polynomial) Predict(x float64) float64 {
	return p.poly.At((x - p.centre) / p.scale)
}

// Coefficients returns the coefficients in the rescaled domain, lowest degree first.
func (p *Polynomial) Coefficients() []float64 {
	return slices.Clone(p.coeffs)
}

// FitConfig drives the magnetometer to travel fit.
type FitConfig struct {
	// Threshold is the projected reading above which samples are used for the fit.
	Threshold float64
	Degree    int
	// ErrorBands are the readings above which the error is reported separately.
	ErrorBands []float64
}

func DefaultFitConfig() FitConfig {
	return FitConfig{Threshold: 1500, Degree: 3, ErrorBands: []float64{1000, 2000, 3000}}
}

// BandError is the prediction error over the samples above Threshold.
type BandError struct {
	Threshold float64
	Points    int
	RMSE      float64
	MAE       float64
}

// FitResult is the outcome of FitMagTravel.
type FitResult struct {
	Predicted *signal.TimeSeries
	// TravelVsMag rows are [travel, projected reading].
	TravelVsMag *signal.Array
	// TravelVsPredicted rows are [travel, predicted travel].
	TravelVsPredicted *signal.Array
	RMSE              float64
	Bands             []BandError
}

// FitMagTravel fits travel against the projected magnetometer reading and predicts travel for
// every sample.
func FitMagTravel(mag, travel *signal.TimeSeries, fitter Fitter, cfg FitConfig) (*FitResult, error) {
	if mag.Len() != travel.Len() {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "%d readings against %d travel samples", mag.Len(), travel.Len())
	}

	readings := mag.Column(0)
	truth := travel.Column(0)

	var xs, ys []float64
	for i, reading := range readings {
		if reading > cfg.Threshold {
			xs = append(xs, reading)
			ys = append(ys, truth[i])
		}
	}

	predictor, err := fitter.Fit(xs, ys, cfg.Degree)
	if err != nil {
		return nil, errors.Wrapf(err, "fit above %g", cfg.Threshold)
	}

	predicted := make([]float64, len(readings))
	travelVsMag := make([][]float64, len(readings))
	travelVsPred := make([][]float64, len(readings))
	for i, reading := range readings {
		predicted[i] = predictor.Predict(reading)
		travelVsMag[i] = []float64{truth[i], reading}
		travelVsPred[i] = []float64{truth[i], predicted[i]}
	}

	series, err := signal.FromColumn(mag.Times(), predicted,
		signal.WithUnits(travel.Units()),
		signal.WithFrame(travel.Frame()),
		signal.WithMeta(mag.Meta()),
		signal.WithMeta(signal.Meta{MetaPolyfitApplied: true}),
	)
	if err != nil {
		return nil, err
	}

	result := &FitResult{Predicted: series}
	if result.TravelVsMag, err = signal.ArrayFromRows(travelVsMag); err != nil {
		return nil, err
	}
	if result.TravelVsPredicted, err = signal.ArrayFromRows(travelVsPred); err != nil {
		return nil, err
	}

	result.RMSE, _ = fitErrors(truth, predicted)
	for _, band := range cfg.ErrorBands {
		var t, p []float64
		for i, reading := range readings {
			if reading > band {
				t = append(t, truth[i])
				p = append(p, predicted[i])
			}
		}

		bandErr := BandError{Threshold: band, Points: len(t)}
		if len(t) > 0 {
			bandErr.RMSE, bandErr.MAE = fitErrors(t, p)
		}
		result.Bands = append(result.Bands, bandErr)
	}

	return result, nil
}

// MetaPolyfitApplied tags series predicted by a fitted polynomial.
const MetaPolyfitApplied = "polyfit_applied"

func fitErrors(truth, predicted []float64) (float64, float64) {
	var sq, abs float64
	for i := range truth {
		d := truth[i] - predicted[i]
		sq += d * d
		abs += math.Abs(d)
	}
	n := float64(len(truth))

	return math.Sqrt(sq / n), abs / n
}
