package align

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// WeightEpsilon keeps the pair weight finite for perfectly still chunks.
const WeightEpsilon = 1e-6

// Kabsch returns the proper rotation R minimising Σ w‖a − R b‖². Rows of a and b are matching
// vectors. A nil w weighs every row equally; negative weights count as zero.
func Kabsch(a, b [][]float64, w []float64) (*mat.Dense, error) {
	if len(a) == 0 {
		return nil, errors.Wrap(pipeline.ErrDegenerateFit, "no vectors")
	}
	if len(a) != len(b) || (w != nil && len(w) != len(a)) {
		return nil, errors.Wrapf(signal.ErrLengthMismatch, "%d, %d vectors and %d weights", len(a), len(b), len(w))
	}

	dim := len(a[0])
	h := mat.NewDense(dim, dim, nil)
	for k := range a {
		if len(a[k]) != dim || len(b[k]) != dim {
			return nil, errors.Wrapf(signal.ErrLengthMismatch, "vector %d", k)
		}

		weight := 1.0
		if w != nil {
			weight = math.Max(w[k], 0)
		}

		for i := range dim {
			for j := range dim {
				h.Set(i, j, h.At(i, j)+weight*a[k][i]*b[k][j])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return nil, errors.Wrap(pipeline.ErrDegenerateFit, "svd did not converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := mat.NewDense(dim, dim, nil)
	r.Mul(&u, v.T())

	if mat.Det(r) < 0 {
		for i := range dim {
			u.Set(i, dim-1, -u.At(i, dim-1))
		}
		r.Mul(&u, v.T())
	}

	return r, nil
}

// Residuals describes how well a rotation maps the B directions onto the A directions.
type Residuals struct {
	AnglesDeg []float64
	MedianDeg float64
	P90Deg    float64
}

// PairWeight favours still pairs: 1/(std‖A‖ + std‖B‖ + ε) with population standard deviations.
func PairWeight(pair signal.Pair) float64 {
	return 1 / (signal.PopStd(pair.A.Norms()) + signal.PopStd(pair.B.Norms()) + WeightEpsilon)
}

// SolveRotation fits the rotation mapping the B chunk directions onto the A ones.
func SolveRotation(pairs signal.Pairs) (*mat.Dense, Residuals, error) {
	if len(pairs) == 0 {
		return nil, Residuals{}, errors.Wrap(pipeline.ErrDegenerateFit, "no pairs to fit a rotation")
	}

	a := make([][]float64, len(pairs))
	b := make([][]float64, len(pairs))
	w := make([]float64, len(pairs))
	for k, pair := range pairs {
		a[k] = signal.UnitVector(pair.A)
		b[k] = signal.UnitVector(pair.B)
		w[k] = PairWeight(pair)
	}

	r, err := Kabsch(a, b, w)
	if err != nil {
		return nil, Residuals{}, err
	}

	return r, residuals(r, a, b), nil
}

func residuals(r *mat.Dense, a, b [][]float64) Residuals {
	angles := make([]float64, len(a))
	for k := range a {
		var rotated mat.VecDense
		rotated.MulVec(r, mat.NewVecDense(len(b[k]), b[k]))
		angles[k] = signal.AngleDeg(rotated.RawVector().Data, a[k])
	}

	return Residuals{
		AnglesDeg: angles,
		MedianDeg: signal.Median(angles),
		P90Deg:    signal.Percentile(angles, 90),
	}
}
