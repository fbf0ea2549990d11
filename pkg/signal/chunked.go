package signal

import (
	"iter"

	"github.com/pkg/errors"
)

// MetaChunk is the metadata key carrying a chunk's span on chunk views.
const MetaChunk = "chunk"

// Span is a half-open index range [I0, I1).
type Span struct {
	I0, I1 int
}

// Len returns the number of samples covered.
func (s Span) Len() int { return s.I1 - s.I0 }

// ChunkedTimeSeries partitions a base series into equal, non-overlapping spans.
type ChunkedTimeSeries struct {
	base  *TimeSeries
	spans []Span
	meta  Meta
}

// NewChunked splits base into consecutive spans of spanLen samples. A trailing partial span is
// dropped.
func NewChunked(base *TimeSeries, spanLen int, meta Meta) (*ChunkedTimeSeries, error) {
	if base == nil {
		return nil, ErrEmpty
	}
	if spanLen <= 0 {
		return nil, errors.Wrapf(ErrSpan, "span length %d", spanLen)
	}

	n := base.Len()
	spans := make([]Span, 0, n/spanLen)
	for i0 := 0; i0+spanLen <= n; i0 += spanLen {
		spans = append(spans, Span{I0: i0, I1: i0 + spanLen})
	}

	return &ChunkedTimeSeries{
		base:  base,
		spans: spans,
		meta:  base.meta.Merge(meta),
	}, nil
}

func (c *ChunkedTimeSeries) Kind() Kind { return KindChunked }

// Base returns the underlying series.
func (c *ChunkedTimeSeries) Base() *TimeSeries { return c.base }

// Len returns the number of chunks.
func (c *ChunkedTimeSeries) Len() int { return len(c.spans) }

// SpanLen returns the number of samples per chunk, or 0 when there are no chunks.
func (c *ChunkedTimeSeries) SpanLen() int {
	if len(c.spans) == 0 {
		return 0
	}

	return c.spans[0].Len()
}

// Spans returns a copy of the spans.
func (c *ChunkedTimeSeries) Spans() []Span { return append([]Span(nil), c.spans...) }

// Meta returns a copy of the chunked series metadata.
func (c *ChunkedTimeSeries) Meta() Meta { return Meta{}.Merge(c.meta) }

// Chunk returns the view over span i, tagged with its span.
func (c *ChunkedTimeSeries) Chunk(i int) *TimeSeries {
	span := c.spans[i]
	// spans are validated at construction
	view, _ := c.base.Slice(span.I0, span.I1)

	return view.WithMeta(Meta{MetaChunk: span})
}

// All yields every chunk in order. The sequence can be ranged over any number of times.
func (c *ChunkedTimeSeries) All() iter.Seq[*TimeSeries] {
	return func(yield func(*TimeSeries) bool) {
		for i := range c.spans {
			if !yield(c.Chunk(i)) {
				return
			}
		}
	}
}
