package signal

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmpty          = errors.New("empty signal")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrNoSampleRate   = errors.New("sample rate missing from metadata")
	ErrSpan           = errors.New("invalid span")
)

// MetaSampleRate is the metadata key holding the sample rate in Hz.
const MetaSampleRate = "fs_hz"

// Meta holds auxiliary values attached to a series.
type Meta map[string]any

// Merge returns a new map holding m overlaid with other.
func (m Meta) Merge(other Meta) Meta {
	out := make(Meta, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}

	return out
}

// TimeSeries is an immutable N×D signal sampled at N timestamps.
type TimeSeries struct {
	t     []float64
	x     *mat.Dense
	units string
	frame string
	meta  Meta
}

// Option configures a TimeSeries at construction.
type Option func(ts *TimeSeries)

// WithUnits sets the units tag.
func WithUnits(units string) Option {
	return func(ts *TimeSeries) {
		ts.units = units
	}
}

// WithFrame sets the reference frame tag.
func WithFrame(frame string) Option {
	return func(ts *TimeSeries) {
		ts.frame = frame
	}
}

// WithMeta merges meta into the series metadata.
func WithMeta(meta Meta) Option {
	return func(ts *TimeSeries) {
		ts.meta = ts.meta.Merge(meta)
	}
}

// NewTimeSeries builds a series from timestamps and an N×D matrix. The series takes ownership of
// x; t is copied.
func NewTimeSeries(t []float64, x *mat.Dense, opts ...Option) (*TimeSeries, error) {
	if len(t) == 0 || x == nil || x.IsEmpty() {
		return nil, ErrEmpty
	}

	rows, _ := x.Dims()
	if rows != len(t) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d timestamps for %d rows", len(t), rows)
	}

	ts := &TimeSeries{
		t:    append([]float64(nil), t...),
		x:    x,
		meta: Meta{},
	}
	for _, opt := range opts {
		opt(ts)
	}

	return ts, nil
}

// FromColumn builds an N×1 series from a flat slice.
func FromColumn(t, x []float64, opts ...Option) (*TimeSeries, error) {
	if len(x) == 0 {
		return nil, ErrEmpty
	}

	return NewTimeSeries(t, mat.NewDense(len(x), 1, append([]float64(nil), x...)), opts...)
}

// FromRows builds an N×D series from per-sample rows.
func FromRows(t []float64, rows [][]float64, opts ...Option) (*TimeSeries, error) {
	arr, err := ArrayFromRows(rows)
	if err != nil {
		return nil, err
	}

	return NewTimeSeries(t, arr.m, opts...)
}

func (ts *TimeSeries) Kind() Kind { return KindTimeSeries }

// Len returns the number of samples.
func (ts *TimeSeries) Len() int { return len(ts.t) }

// Dims returns the number of samples and channels.
func (ts *TimeSeries) Dims() (int, int) { return ts.x.Dims() }

// Times returns the timestamps. The slice must not be modified.
func (ts *TimeSeries) Times() []float64 { return ts.t }

// Values exposes the value matrix read-only.
func (ts *TimeSeries) Values() mat.Matrix { return ts.x }

// At returns channel j of sample i.
func (ts *TimeSeries) At(i, j int) float64 { return ts.x.At(i, j) }

// Row returns a copy of sample i.
func (ts *TimeSeries) Row(i int) []float64 { return mat.Row(nil, i, ts.x) }

// Column returns a copy of channel j.
func (ts *TimeSeries) Column(j int) []float64 { return mat.Col(nil, j, ts.x) }

func (ts *TimeSeries) Units() string { return ts.units }

func (ts *TimeSeries) Frame() string { return ts.frame }

// Meta returns a copy of the metadata.
func (ts *TimeSeries) Meta() Meta { return Meta{}.Merge(ts.meta) }

// MetaValue returns a single metadata value.
func (ts *TimeSeries) MetaValue(key string) (any, bool) {
	v, ok := ts.meta[key]

	return v, ok
}

// SampleRate reads the sample rate from the metadata.
func (ts *TimeSeries) SampleRate() (float64, error) {
	v, ok := ts.meta[MetaSampleRate]
	if !ok {
		return 0, ErrNoSampleRate
	}

	fs, ok := v.(float64)
	if !ok || fs <= 0 {
		return 0, errors.Wrapf(ErrNoSampleRate, "%s=%v", MetaSampleRate, v)
	}

	return fs, nil
}

// Derive builds a series sharing the timestamps, units, frame and metadata of ts with new values.
// Options are applied on top of the inherited tags.
func (ts *TimeSeries) Derive(x *mat.Dense, opts ...Option) (*TimeSeries, error) {
	inherited := []Option{WithUnits(ts.units), WithFrame(ts.frame), WithMeta(ts.meta)}

	return NewTimeSeries(ts.t, x, append(inherited, opts...)...)
}

// WithMeta returns a copy of ts whose metadata is overlaid with meta. Sample data is shared.
func (ts *TimeSeries) WithMeta(meta Meta) *TimeSeries {
	return &TimeSeries{
		t:     ts.t,
		x:     ts.x,
		units: ts.units,
		frame: ts.frame,
		meta:  ts.meta.Merge(meta),
	}
}

// Slice returns a view over samples [i0, i1).
func (ts *TimeSeries) Slice(i0, i1 int) (*TimeSeries, error) {
	if i0 < 0 || i1 > len(ts.t) || i0 >= i1 {
		return nil, errors.Wrapf(ErrSpan, "[%d,%d) outside [0,%d)", i0, i1, len(ts.t))
	}

	_, cols := ts.x.Dims()

	return &TimeSeries{
		t:     ts.t[i0:i1],
		x:     ts.x.Slice(i0, i1, 0, cols).(*mat.Dense),
		units: ts.units,
		frame: ts.frame,
		meta:  ts.meta,
	}, nil
}

// Norms returns the Euclidean norm of every sample.
func (ts *TimeSeries) Norms() []float64 {
	return RowNorms(ts.x)
}

// Mean returns the per-channel time mean.
func (ts *TimeSeries) Mean() []float64 {
	return ColumnMeans(ts.x)
}
