// Package loader reads sensor logs into workspace artifacts.
package loader

import (
	"context"
	"math"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/signal"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrPartialRecord = errors.New("partial record")
	ErrUnknownKind   = errors.New("unknown sensor kind")
)

// MetaSensorID is the metadata key holding the sensor a series was read from.
const MetaSensorID = "sensor_id"

// Units attached by the loaders.
const (
	UnitsAccel = "m/s^2"
	UnitsMag   = "milli-Gauss"
	UnitsAngle = "rad"
	UnitsTemp  = "degC"
)

const (
	// milliG converts the accelerometer LSB (1 mg) to m/s².
	milliG = 9.81 / 1000
	// angleLSB converts the 12-bit angle count to radians.
	angleLSB = 2 * math.Pi / 4096
)

// Loader produces workspace entries from one source.
type Loader interface {
	Load(ctx context.Context) (map[string]signal.Artifact, error)
}

// LoadAll runs the loaders concurrently and puts every entry in ws. Entries are merged in loader
// order once all loaders are done; a key produced twice, or already in ws, is a configuration
// error.
func LoadAll(ctx context.Context, ws *pipeline.Workspace, loaders ...Loader) error {
	if ws == nil {
		return pipeline.ErrWorkspaceMustBeSet
	}

	results := make([]map[string]signal.Artifact, len(loaders))
	errGrp, gCtx := errgroup.WithContext(ctx)
	for idx, l := range loaders {
		errGrp.Go(func() error {
			entries, err := l.Load(gCtx)
			if err != nil {
				return errors.Wrapf(err, "loader %d", idx)
			}
			results[idx] = entries

			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return err
	}

	for _, entries := range results {
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		for _, key := range keys {
			if ws.Has(key) {
				return errors.Wrapf(pipeline.ErrConfiguration, "key %q loaded twice", key)
			}
			if err := ws.Put(key, entries[key]); err != nil {
				return err
			}
		}
	}

	return nil
}

// sampleRate returns 1/median(diff t).
func sampleRate(t []float64) (float64, error) {
	if len(t) < 2 {
		return 0, errors.Wrapf(signal.ErrEmpty, "%d samples", len(t))
	}

	step := signal.Median(signal.Diff(t))
	if step <= 0 {
		return 0, errors.Wrapf(signal.ErrNoSampleRate, "median time step %g", step)
	}

	return 1 / step, nil
}

// series tags a loaded series with its sensor and sample rate.
func series(t []float64, rows [][]float64, sensorID, units string, fs float64) (*signal.TimeSeries, error) {
	return signal.FromRows(t, rows,
		signal.WithUnits(units),
		signal.WithFrame(sensorID),
		signal.WithMeta(signal.Meta{MetaSensorID: sensorID, signal.MetaSampleRate: fs}),
	)
}
