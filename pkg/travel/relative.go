package travel

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

// MetaRotationApplied tags series expressed in another sensor's frame.
const MetaRotationApplied = "rotation_applied"

// RelativeAccel rotates b into the frame of a with r and returns the rotated series and a − R·b.
// Both results use the timestamps and frame of a with the units and metadata of b.
func RelativeAccel(a, b *signal.TimeSeries, r mat.Matrix) (*signal.TimeSeries, *signal.TimeSeries, error) {
	rowsA, colsA := a.Dims()
	rowsB, colsB := b.Dims()
	if rowsA != rowsB || colsA != colsB {
		return nil, nil, errors.Wrapf(pipeline.ErrConfiguration, "series %dx%d against %dx%d", rowsA, colsA, rowsB, colsB)
	}

	rowsR, colsR := r.Dims()
	if rowsR != colsB || colsR != colsB {
		return nil, nil, errors.Wrapf(pipeline.ErrConfiguration, "rotation %dx%d for %d channels", rowsR, colsR, colsB)
	}

	// rows are samples so R·bᵀ transposed is b·Rᵀ
	rotated := mat.NewDense(rowsB, colsB, nil)
	rotated.Mul(b.Values(), r.T())

	rel := mat.NewDense(rowsA, colsA, nil)
	rel.Sub(a.Values(), rotated)

	opts := []signal.Option{
		signal.WithUnits(b.Units()),
		signal.WithFrame(a.Frame()),
		signal.WithMeta(b.Meta()),
		signal.WithMeta(signal.Meta{MetaRotationApplied: true}),
	}

	bInA, err := signal.NewTimeSeries(a.Times(), rotated, opts...)
	if err != nil {
		return nil, nil, err
	}

	relative, err := signal.NewTimeSeries(a.Times(), rel, opts...)
	if err != nil {
		return nil, nil, err
	}

	return bInA, relative, nil
}
