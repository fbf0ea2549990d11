package travel

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// AngleConfig describes the linkage measured by the angle sensor, in mm.
type AngleConfig struct {
	Hypotenuse  float64
	TopAdjacent float64
	// ZeroPercentile picks the angle read at full extension.
	ZeroPercentile float64
}

func DefaultAngleConfig() AngleConfig {
	return AngleConfig{Hypotenuse: 120, TopAdjacent: 118.75, ZeroPercentile: 95}
}

// AngleToTravel converts a linkage angle in radians to travel in mm. The given percentile of the
// angle is taken as full extension.
func AngleToTravel(angle *signal.TimeSeries, cfg AngleConfig) (*signal.TimeSeries, error) {
	if cfg.Hypotenuse <= 0 || cfg.TopAdjacent <= 0 || cfg.TopAdjacent > cfg.Hypotenuse {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "linkage %g/%g mm", cfg.TopAdjacent, cfg.Hypotenuse)
	}

	rows, cols := angle.Dims()
	values := make([]float64, 0, rows*cols)
	for j := range cols {
		values = append(values, angle.Column(j)...)
	}

	top := math.Acos(cfg.TopAdjacent / cfg.Hypotenuse)
	zero := signal.Percentile(values, cfg.ZeroPercentile)

	travel := mat.NewDense(rows, cols, nil)
	travel.Apply(func(_, _ int, theta float64) float64 {
		net := -(theta - zero) + top

		return 2 * (cfg.TopAdjacent - cfg.Hypotenuse*math.Cos(net))
	}, angle.Values())

	return angle.Derive(travel, signal.WithUnits("mm"))
}
