package signal

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind identifies an artifact variant.
type Kind string

const (
	KindTimeSeries Kind = "timeseries"
	KindChunked    Kind = "chunked"
	KindArray      Kind = "array"
	KindScalar     Kind = "scalar"
	KindPairs      Kind = "pairs"
)

// Artifact is anything a workspace can hold.
type Artifact interface {
	Kind() Kind
}

// Array is a plain N×D numeric matrix.
type Array struct {
	m *mat.Dense
}

// NewArray wraps m. The array takes ownership of m.
func NewArray(m *mat.Dense) (*Array, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmpty
	}

	return &Array{m: m}, nil
}

// ArrayFromRows builds an array from equally sized rows.
func ArrayFromRows(rows [][]float64) (*Array, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Wrapf(ErrLengthMismatch, "row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return &Array{m: mat.NewDense(len(rows), cols, data)}, nil
}

// VectorArray stores v as a 1×len(v) array.
func VectorArray(v []float64) (*Array, error) {
	if len(v) == 0 {
		return nil, ErrEmpty
	}

	return &Array{m: mat.NewDense(1, len(v), append([]float64(nil), v...))}, nil
}

func (a *Array) Kind() Kind { return KindArray }

// Dims returns the number of rows and columns.
func (a *Array) Dims() (int, int) { return a.m.Dims() }

// At returns the element at row i, column j.
func (a *Array) At(i, j int) float64 { return a.m.At(i, j) }

// Matrix exposes the values read-only.
func (a *Array) Matrix() mat.Matrix { return a.m }

// Row returns a copy of row i.
func (a *Array) Row(i int) []float64 { return mat.Row(nil, i, a.m) }

// Column returns a copy of column j.
func (a *Array) Column(j int) []float64 { return mat.Col(nil, j, a.m) }

// Vector flattens the array in row-major order.
func (a *Array) Vector() []float64 {
	r, c := a.m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, a.m.RawRowView(i)...)
	}

	return out
}

// Scalar is a single number.
type Scalar float64

func (Scalar) Kind() Kind { return KindScalar }

// Pair is a couple of time-aligned chunks from two sensors.
type Pair struct {
	A, B *TimeSeries
}

// Pairs is an ordered list of chunk pairs.
type Pairs []Pair

func (Pairs) Kind() Kind { return KindPairs }

var (
	_ Artifact = (*TimeSeries)(nil)
	_ Artifact = (*ChunkedTimeSeries)(nil)
	_ Artifact = (*Array)(nil)
	_ Artifact = Scalar(0)
	_ Artifact = Pairs(nil)
)
