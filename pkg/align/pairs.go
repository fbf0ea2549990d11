package align

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// PairFilterConfig holds the stillness thresholds.
type PairFilterConfig struct {
	// MinConfidence is the minimum norm of the mean unit sample of a chunk.
	MinConfidence float64
	// MaxMagnitudeDiff is the largest accepted gap between the mean sample norms of both chunks.
	MaxMagnitudeDiff float64
}

func DefaultPairFilterConfig() PairFilterConfig {
	return PairFilterConfig{MinConfidence: 0.98, MaxMagnitudeDiff: 0.5}
}

// PairStats summarises a FilterPairs call.
type PairStats struct {
	JitterRejects int
	DiffRejects   int
	Survivors     int
	// ScaleMean and ScaleStd describe the ratio of the B mean-vector magnitude to the A one over
	// the survivors. Both are NaN without survivors.
	ScaleMean float64
	ScaleStd  float64
}

// Confidence returns the norm of the mean of the unit samples of ts. It is 1 when every sample
// points the same way.
func Confidence(ts *signal.TimeSeries) float64 {
	return floats.Norm(signal.MeanRows(signal.UnitRows(ts.Values())), 2)
}

// FilterPairs keeps the chunk pairs where both chunks are still and have similar magnitudes.
func FilterPairs(a, b *signal.ChunkedTimeSeries, cfg PairFilterConfig) (signal.Pairs, PairStats, error) {
	if a.Len() != b.Len() {
		return nil, PairStats{}, errors.Wrapf(pipeline.ErrConfiguration, "%d chunks against %d", a.Len(), b.Len())
	}

	var stats PairStats
	pairs := signal.Pairs{}

	for i := range a.Len() {
		chunkA, chunkB := a.Chunk(i), b.Chunk(i)

		if Confidence(chunkA) < cfg.MinConfidence || Confidence(chunkB) < cfg.MinConfidence {
			stats.JitterRejects++

			continue
		}

		magA := stat.Mean(chunkA.Norms(), nil)
		magB := stat.Mean(chunkB.Norms(), nil)
		if math.Abs(magA-magB) > cfg.MaxMagnitudeDiff {
			stats.DiffRejects++

			continue
		}

		pairs = append(pairs, signal.Pair{A: chunkA, B: chunkB})
	}

	stats.Survivors = len(pairs)
	stats.ScaleMean, stats.ScaleStd = scaleStats(pairs)

	return pairs, stats, nil
}

func scaleStats(pairs signal.Pairs) (float64, float64) {
	if len(pairs) == 0 {
		return math.NaN(), math.NaN()
	}

	scales := make([]float64, len(pairs))
	for i, pair := range pairs {
		scales[i] = floats.Norm(pair.B.Mean(), 2) / floats.Norm(pair.A.Mean(), 2)
	}

	return stat.Mean(scales, nil), signal.PopStd(scales)
}

// ColinearConfig holds the colinearity threshold.
type ColinearConfig struct {
	// MinAngleDeg is the smallest angle to the aggregate direction a pair needs to be kept.
	MinAngleDeg float64
}

func DefaultColinearConfig() ColinearConfig {
	return ColinearConfig{MinAngleDeg: 10}
}

// FilterColinear keeps the pairs whose first member points away from the aggregate direction of
// all first members by more than cfg.MinAngleDeg.
func FilterColinear(pairs signal.Pairs, cfg ColinearConfig) (signal.Pairs, error) {
	if cfg.MinAngleDeg < 0 || cfg.MinAngleDeg >= 180 {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "colinear angle %g deg", cfg.MinAngleDeg)
	}

	kept := signal.Pairs{}
	if len(pairs) == 0 {
		return kept, nil
	}

	units := make([][]float64, len(pairs))
	for i, pair := range pairs {
		units[i] = signal.UnitVector(pair.A)
	}
	aggregate := signal.Normalize(signal.MeanRows(units))

	for i, pair := range pairs {
		if signal.AngleDeg(units[i], aggregate) > cfg.MinAngleDeg {
			kept = append(kept, pair)
		}
	}

	return kept, nil
}
