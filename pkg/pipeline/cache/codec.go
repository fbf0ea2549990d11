package cache

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/signal"
)

// BlobVersion is bumped whenever the entry layout changes.
const BlobVersion = 1

var (
	// ErrCorrupt reports a blob that cannot be turned back into artifacts.
	ErrCorrupt = errors.New("corrupt cache blob")
	// ErrUnsupported reports an artifact or metadata value the codec cannot persist.
	ErrUnsupported = errors.New("unsupported cache value")
)

// Blob is the persisted form of a set of workspace entries.
type Blob struct {
	Version int              `cbor:"version"`
	Entries map[string]Entry `cbor:"entries"`
}

// NewBlob returns an empty blob at the current version.
func NewBlob() *Blob {
	return &Blob{Version: BlobVersion, Entries: map[string]Entry{}}
}

// Entry is the persisted form of one artifact.
type Entry struct {
	Kind    signal.Kind `cbor:"kind"`
	T       []float64   `cbor:"t,omitempty"`
	X       []float64   `cbor:"x,omitempty"`
	Rows    int         `cbor:"rows,omitempty"`
	Cols    int         `cbor:"cols,omitempty"`
	Units   string      `cbor:"units,omitempty"`
	Frame   string      `cbor:"frame,omitempty"`
	Meta    *MetaEntry  `cbor:"meta,omitempty"`
	Scalar  float64     `cbor:"scalar,omitempty"`
	SpanLen int         `cbor:"span_len,omitempty"`
	Base    *Entry      `cbor:"base,omitempty"`
	Pairs   []PairEntry `cbor:"pairs,omitempty"`
}

type PairEntry struct {
	A Entry `cbor:"a"`
	B Entry `cbor:"b"`
}

// MetaEntry splits metadata by value type so it decodes back to the same Go types.
type MetaEntry struct {
	Floats  map[string]float64   `cbor:"floats,omitempty"`
	Ints    map[string]int       `cbor:"ints,omitempty"`
	Strings map[string]string    `cbor:"strings,omitempty"`
	Bools   map[string]bool      `cbor:"bools,omitempty"`
	Vectors map[string][]float64 `cbor:"vectors,omitempty"`
	Spans   map[string][2]int    `cbor:"spans,omitempty"`
}

// Add stores an artifact under key.
func (b *Blob) Add(key string, artifact signal.Artifact) error {
	entry, err := Encode(artifact)
	if err != nil {
		return errors.Wrapf(err, "key %s", key)
	}

	b.Entries[key] = entry

	return nil
}

// Marshal encodes the blob to CBOR.
func (b *Blob) Marshal() ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal blob")
	}

	return data, nil
}

// Unmarshal decodes a CBOR blob.
func Unmarshal(data []byte) (*Blob, error) {
	blob := &Blob{}

	err := cbor.Unmarshal(data, blob)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if blob.Version != BlobVersion {
		return nil, errors.Wrapf(ErrCorrupt, "blob version %d, want %d", blob.Version, BlobVersion)
	}

	return blob, nil
}

// Encode converts an artifact into its persisted form.
func Encode(artifact signal.Artifact) (Entry, error) {
	switch v := artifact.(type) {
	case *signal.TimeSeries:
		return encodeSeries(v)
	case *signal.ChunkedTimeSeries:
		base, err := encodeSeries(v.Base())
		if err != nil {
			return Entry{}, err
		}
		meta, err := encodeMeta(v.Meta())
		if err != nil {
			return Entry{}, err
		}

		return Entry{Kind: signal.KindChunked, Base: &base, SpanLen: v.SpanLen(), Meta: meta}, nil
	case *signal.Array:
		rows, cols := v.Dims()

		return Entry{Kind: signal.KindArray, X: v.Vector(), Rows: rows, Cols: cols}, nil
	case signal.Scalar:
		return Entry{Kind: signal.KindScalar, Scalar: float64(v)}, nil
	case signal.Pairs:
		pairs := make([]PairEntry, 0, len(v))
		for i, pair := range v {
			a, err := encodeSeries(pair.A)
			if err != nil {
				return Entry{}, errors.Wrapf(err, "pair %d", i)
			}
			b, err := encodeSeries(pair.B)
			if err != nil {
				return Entry{}, errors.Wrapf(err, "pair %d", i)
			}
			pairs = append(pairs, PairEntry{A: a, B: b})
		}

		return Entry{Kind: signal.KindPairs, Pairs: pairs}, nil
	default:
		return Entry{}, errors.Wrapf(ErrUnsupported, "artifact %T", artifact)
	}
}

func encodeSeries(ts *signal.TimeSeries) (Entry, error) {
	meta, err := encodeMeta(ts.Meta())
	if err != nil {
		return Entry{}, err
	}

	rows, cols := ts.Dims()
	x := make([]float64, 0, rows*cols)
	for i := range rows {
		x = append(x, ts.Row(i)...)
	}

	return Entry{
		Kind:  signal.KindTimeSeries,
		T:     append([]float64(nil), ts.Times()...),
		X:     x,
		Rows:  rows,
		Cols:  cols,
		Units: ts.Units(),
		Frame: ts.Frame(),
		Meta:  meta,
	}, nil
}

func encodeMeta(meta signal.Meta) (*MetaEntry, error) {
	if len(meta) == 0 {
		return nil, nil //nolint:nilnil
	}

	out := &MetaEntry{}
	for key, value := range meta {
		switch v := value.(type) {
		case float64:
			out.Floats = setValue(out.Floats, key, v)
		case int:
			out.Ints = setValue(out.Ints, key, v)
		case string:
			out.Strings = setValue(out.Strings, key, v)
		case bool:
			out.Bools = setValue(out.Bools, key, v)
		case []float64:
			out.Vectors = setValue(out.Vectors, key, append([]float64(nil), v...))
		case signal.Span:
			out.Spans = setValue(out.Spans, key, [2]int{v.I0, v.I1})
		default:
			return nil, errors.Wrapf(ErrUnsupported, "metadata %s of type %T", key, value)
		}
	}

	return out, nil
}

func setValue[V any](m map[string]V, key string, v V) map[string]V {
	if m == nil {
		m = map[string]V{}
	}
	m[key] = v

	return m
}

// Decode rebuilds an artifact. Any inconsistency is reported as ErrCorrupt.
func Decode(entry Entry) (signal.Artifact, error) {
	switch entry.Kind {
	case signal.KindTimeSeries:
		return decodeSeries(entry)
	case signal.KindChunked:
		if entry.Base == nil {
			return nil, errors.Wrap(ErrCorrupt, "chunked entry without base")
		}
		base, err := decodeSeries(*entry.Base)
		if err != nil {
			return nil, err
		}
		chunked, err := signal.NewChunked(base, entry.SpanLen, decodeMeta(entry.Meta))
		if err != nil {
			return nil, errors.Wrap(ErrCorrupt, err.Error())
		}

		return chunked, nil
	case signal.KindArray:
		m, err := decodeMatrix(entry)
		if err != nil {
			return nil, err
		}

		return signal.NewArray(m)
	case signal.KindScalar:
		return signal.Scalar(entry.Scalar), nil
	case signal.KindPairs:
		pairs := make(signal.Pairs, 0, len(entry.Pairs))
		for i, pair := range entry.Pairs {
			a, err := decodeSeries(pair.A)
			if err != nil {
				return nil, errors.Wrapf(err, "pair %d", i)
			}
			b, err := decodeSeries(pair.B)
			if err != nil {
				return nil, errors.Wrapf(err, "pair %d", i)
			}
			pairs = append(pairs, signal.Pair{A: a, B: b})
		}

		return pairs, nil
	default:
		return nil, errors.Wrapf(ErrCorrupt, "unknown kind %q", entry.Kind)
	}
}

func decodeMatrix(entry Entry) (*mat.Dense, error) {
	if entry.Rows <= 0 || entry.Cols <= 0 || len(entry.X) != entry.Rows*entry.Cols {
		return nil, errors.Wrapf(ErrCorrupt, "%d values for shape %dx%d", len(entry.X), entry.Rows, entry.Cols)
	}

	return mat.NewDense(entry.Rows, entry.Cols, entry.X), nil
}

func decodeSeries(entry Entry) (*signal.TimeSeries, error) {
	if entry.Kind != signal.KindTimeSeries {
		return nil, errors.Wrapf(ErrCorrupt, "kind %q, want %q", entry.Kind, signal.KindTimeSeries)
	}

	m, err := decodeMatrix(entry)
	if err != nil {
		return nil, err
	}

	ts, err := signal.NewTimeSeries(entry.T, m,
		signal.WithUnits(entry.Units),
		signal.WithFrame(entry.Frame),
		signal.WithMeta(decodeMeta(entry.Meta)),
	)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}

	return ts, nil
}

func decodeMeta(entry *MetaEntry) signal.Meta {
	meta := signal.Meta{}
	if entry == nil {
		return meta
	}

	for k, v := range entry.Floats {
		meta[k] = v
	}
	for k, v := range entry.Ints {
		meta[k] = v
	}
	for k, v := range entry.Strings {
		meta[k] = v
	}
	for k, v := range entry.Bools {
		meta[k] = v
	}
	for k, v := range entry.Vectors {
		meta[k] = v
	}
	for k, v := range entry.Spans {
		meta[k] = signal.Span{I0: v[0], I1: v[1]}
	}

	return meta
}
