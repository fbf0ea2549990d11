package loader

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/signal"
)

// Kind selects how a CSV column group is converted.
type Kind string

const (
	KindAccel Kind = "accel"
	KindMag   Kind = "mag"
	KindAngle Kind = "angle"
)

// TimeColumn holds the timestamps in seconds.
const TimeColumn = "t_s"

// CSVLoader reads one sensor from a CSV log with a t_s column.
//
// Accelerometer and magnetometer sensors read <id>_x, <id>_y and <id>_z; angle sensors read the
// <id> column. Entries are stored under accel/<id>, mag or angle unless Key is set.
type CSVLoader struct {
	Path     string
	SensorID string
	Kind     Kind
	Key      string
}

var _ Loader = (*CSVLoader)(nil)

func (l *CSVLoader) key() string {
	switch {
	case l.Key != "":
		return l.Key
	case l.Kind == KindAccel:
		return "accel/" + l.SensorID
	default:
		return string(l.Kind)
	}
}

func (l *CSVLoader) Load(ctx context.Context) (map[string]signal.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		columns []string
		scale   float64
		units   string
	)
	switch l.Kind {
	case KindAccel:
		columns, scale, units = l.axes(), milliG, UnitsAccel
	case KindMag:
		columns, scale, units = l.axes(), 1, UnitsMag
	case KindAngle:
		columns, scale, units = []string{l.SensorID}, angleLSB, UnitsAngle
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", l.Kind)
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", l.Path)
	}
	defer f.Close()

	t, rows, err := readColumns(ctx, csv.NewReader(f), columns)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", l.Path)
	}
	for _, row := range rows {
		for j := range row {
			row[j] *= scale
		}
	}

	fs, err := sampleRate(t)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", l.Path)
	}

	ts, err := series(t, rows, l.SensorID, units, fs)
	if err != nil {
		return nil, err
	}

	return map[string]signal.Artifact{l.key(): ts}, nil
}

func (l *CSVLoader) axes() []string {
	return []string{l.SensorID + "_x", l.SensorID + "_y", l.SensorID + "_z"}
}

// readColumns returns the t_s column and the requested columns of every record.
func readColumns(ctx context.Context, r *csv.Reader, columns []string) ([]float64, [][]float64, error) {
	header, err := r.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to read header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	wanted := append([]string{TimeColumn}, columns...)
	positions := make([]int, len(wanted))
	for i, name := range wanted {
		pos, ok := index[name]
		if !ok {
			return nil, nil, errors.Wrapf(ErrMissingColumn, "%q", name)
		}
		positions[i] = pos
	}

	var (
		t    []float64
		rows [][]float64
	)
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", line)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		values := make([]float64, len(positions))
		for i, pos := range positions {
			values[i], err = strconv.ParseFloat(record[pos], 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d column %q", line, wanted[i])
			}
		}
		t = append(t, values[0])
		rows = append(rows, values[1:])
	}

	return t, rows, nil
}
