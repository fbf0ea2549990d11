package calib

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// ProjectConfig selects the magnetometer samples defining the magnet direction.
type ProjectConfig struct {
	// Threshold is the norm a sample must exceed, in milli-Gauss.
	Threshold float64
}

func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{Threshold: 3000}
}

// ProjectMag projects every magnetometer sample on the mean direction of the strong samples. It
// returns the N×1 projection and the unit direction.
func ProjectMag(mag *signal.TimeSeries, cfg ProjectConfig) (*signal.TimeSeries, []float64, error) {
	var strong [][]float64
	for i, norm := range mag.Norms() {
		if norm > cfg.Threshold {
			strong = append(strong, mag.Row(i))
		}
	}

	if len(strong) == 0 {
		return nil, nil, errors.Wrapf(pipeline.ErrDegenerateFit, "no sample above %g", cfg.Threshold)
	}

	direction := signal.Normalize(signal.MeanRows(strong))

	rows, cols := mag.Dims()
	projected := mat.NewDense(rows, 1, nil)
	projected.Mul(mag.Values(), mat.NewDense(cols, 1, append([]float64(nil), direction...)))

	out, err := mag.Derive(projected)
	if err != nil {
		return nil, nil, err
	}

	return out, direction, nil
}
