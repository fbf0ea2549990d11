package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/signal"
)

// Keys written by BinaryLoader.
const (
	KeyAccelLis1 = "accel/lis1"
	KeyAccelLis2 = "accel/lis2"
	KeyMag       = "mag"
	KeyAngle     = "angle"
	KeyTemp      = "temp"
)

// RecordSize is the packed size of a log record.
const RecordSize = 32

// logRecord mirrors the packed little-endian record written by the logger firmware.
type logRecord struct {
	TimeMs uint32
	Seq    uint32
	Lis1   [3]int16
	Lis2   [3]int16
	Mag    [3]int16
	Angle  uint16
	// TempDeci is in tenths of a degree Celsius.
	TempDeci int32
}

// BinaryLoader decodes a raw logger file holding both accelerometers, the magnetometer, the angle
// sensor and the temperature.
type BinaryLoader struct {
	Path string
}

var _ Loader = (*BinaryLoader)(nil)

func (l *BinaryLoader) Load(ctx context.Context) (map[string]signal.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", l.Path)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", l.Path)
	}

	return recordsToArtifacts(records)
}

func decodeRecords(data []byte) ([]logRecord, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(signal.ErrEmpty, "no record")
	}
	if rem := len(data) % RecordSize; rem != 0 {
		return nil, errors.Wrapf(ErrPartialRecord, "%d trailing bytes after record %d", rem, len(data)/RecordSize)
	}

	records := make([]logRecord, len(data)/RecordSize)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, records); err != nil {
		return nil, errors.Wrap(err, "unable to decode records")
	}

	return records, nil
}

func axes(v [3]int16, scale float64) []float64 {
	return []float64{float64(v[0]) * scale, float64(v[1]) * scale, float64(v[2]) * scale}
}

func recordsToArtifacts(records []logRecord) (map[string]signal.Artifact, error) {
	n := len(records)
	t := make([]float64, n)
	lis1 := make([][]float64, n)
	lis2 := make([][]float64, n)
	mag := make([][]float64, n)
	angle := make([][]float64, n)
	temp := make([][]float64, n)
	for i, rec := range records {
		t[i] = float64(rec.TimeMs) / 1000
		lis1[i] = axes(rec.Lis1, milliG)
		lis2[i] = axes(rec.Lis2, milliG)
		mag[i] = axes(rec.Mag, 1)
		angle[i] = []float64{float64(rec.Angle) * angleLSB}
		temp[i] = []float64{float64(rec.TempDeci) / 10}
	}

	fs, err := sampleRate(t)
	if err != nil {
		return nil, err
	}

	out := make(map[string]signal.Artifact, 5)
	for _, entry := range []struct {
		key, sensor, units string
		rows               [][]float64
	}{
		{KeyAccelLis1, "lis1", UnitsAccel, lis1},
		{KeyAccelLis2, "lis2", UnitsAccel, lis2},
		{KeyMag, "mmc", UnitsMag, mag},
		{KeyAngle, "angle", UnitsAngle, angle},
		{KeyTemp, "temp", UnitsTemp, temp},
	} {
		ts, err := series(t, entry.rows, entry.sensor, entry.units, fs)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %s", entry.key)
		}
		out[entry.key] = ts
	}

	return out, nil
}
