package travel

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// MetaTravelVector holds the direction a projected series was projected on.
const MetaTravelVector = "travel_vector"

// VectorConfig selects the chunks that define the travel direction.
type VectorConfig struct {
	// ChunkSize is the number of samples per chunk.
	ChunkSize int
	// Threshold is the minimum norm of a chunk mean, in the series units.
	Threshold float64
}

func DefaultVectorConfig() VectorConfig {
	return VectorConfig{ChunkSize: 10, Threshold: 4.5}
}

// ExtractTravelVector returns the unit direction of the strongest compressions of rel, and a
// scatter of [magnitude, mean...] for every kept chunk.
//
// The per-channel mean is removed first. Chunks are kept when the norm of their mean exceeds
// cfg.Threshold and the mean of the first channel is negative.
func ExtractTravelVector(rel *signal.TimeSeries, cfg VectorConfig) ([]float64, *signal.Array, error) {
	if cfg.ChunkSize < 1 {
		return nil, nil, errors.Wrapf(pipeline.ErrConfiguration, "chunk size %d", cfg.ChunkSize)
	}

	rows, cols := rel.Dims()
	offset := rel.Mean()
	centred := mat.NewDense(rows, cols, nil)
	centred.Apply(func(_, j int, v float64) float64 { return v - offset[j] }, rel.Values())

	var means [][]float64
	for i0 := 0; i0+cfg.ChunkSize <= rows; i0 += cfg.ChunkSize {
		mean := signal.ColumnMeans(centred.Slice(i0, i0+cfg.ChunkSize, 0, cols))
		if floats.Norm(mean, 2) > cfg.Threshold && mean[0] < 0 {
			means = append(means, mean)
		}
	}

	if len(means) == 0 {
		return nil, nil, errors.Wrapf(pipeline.ErrDegenerateFit, "no chunk of %d samples above %g", cfg.ChunkSize, cfg.Threshold)
	}

	scatter := make([][]float64, len(means))
	for i, mean := range means {
		scatter[i] = append([]float64{floats.Norm(mean, 2)}, mean...)
	}

	points, err := signal.ArrayFromRows(scatter)
	if err != nil {
		return nil, nil, err
	}

	return signal.Normalize(signal.MeanRows(means)), points, nil
}

// Project returns the N×1 series of the dot products of every sample of ts with vec.
func Project(ts *signal.TimeSeries, vec []float64) (*signal.TimeSeries, error) {
	rows, cols := ts.Dims()
	if len(vec) != cols {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "vector of %d for %d channels", len(vec), cols)
	}

	projected := mat.NewDense(rows, 1, nil)
	projected.Mul(ts.Values(), mat.NewDense(cols, 1, append([]float64(nil), vec...)))

	return ts.Derive(projected, signal.WithMeta(signal.Meta{MetaTravelVector: append([]float64(nil), vec...)}))
}
