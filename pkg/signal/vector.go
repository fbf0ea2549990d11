package signal

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NormEpsilon guards Normalize against zero-length vectors.
const NormEpsilon = 1e-9

// RowNorms returns the Euclidean norm of every row of m.
func RowNorms(m mat.Matrix) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := range rows {
		out[i] = floats.Norm(mat.Row(nil, i, m), 2)
	}

	return out
}

// ColumnMeans returns the mean of every column of m.
func ColumnMeans(m mat.Matrix) []float64 {
	_, cols := m.Dims()
	out := make([]float64, cols)
	for j := range cols {
		out[j] = stat.Mean(mat.Col(nil, j, m), nil)
	}

	return out
}

// Normalize returns v divided by its norm. The divisor is floored at NormEpsilon so a zero
// vector stays zero instead of turning into NaN.
func Normalize(v []float64) []float64 {
	out := append([]float64(nil), v...)
	floats.Scale(1/max(floats.Norm(v, 2), NormEpsilon), out)

	return out
}

// UnitVector returns the normalised time mean of a series.
func UnitVector(ts *TimeSeries) []float64 {
	return Normalize(ts.Mean())
}

// UnitRows normalises every row of m.
func UnitRows(m mat.Matrix) [][]float64 {
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := range rows {
		out[i] = Normalize(mat.Row(nil, i, m))
	}

	return out
}

// MeanRows returns the element-wise mean of equally sized rows.
func MeanRows(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}

	out := make([]float64, len(rows[0]))
	for _, row := range rows {
		floats.Add(out, row)
	}
	floats.Scale(1/float64(len(rows)), out)

	return out
}

// AngleDeg returns the angle between two unit vectors in degrees, with the cosine clipped to
// [-1, 1].
func AngleDeg(u, v []float64) float64 {
	return math.Acos(Clip(floats.Dot(u, v), -1, 1)) * 180 / math.Pi
}

// Clip bounds x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	return min(max(x, lo), hi)
}

// PopStd returns the population standard deviation of x.
func PopStd(x []float64) float64 {
	return math.Sqrt(stat.PopVariance(x, nil))
}

// Percentile returns the p-th percentile of x (0 ≤ p ≤ 100) by linear interpolation between the
// closest ranks.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(x)
	slices.Sort(sorted)

	pos := Clip(p, 0, 100) / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)

	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median returns the 50th percentile of x.
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Diff returns the first difference of x. The result is one element shorter than x.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}

	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}

	return out
}
