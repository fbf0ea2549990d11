package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-travel/internal/config"
	"github.com/askiada/go-travel/internal/loader"
	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/pipeline/render"
)

func defaults(t *testing.T) config.Config {
	t.Helper()

	cfg, err := config.Load(map[string]string{})
	require.NoError(t, err)

	return cfg
}

func TestBuildPipeline(t *testing.T) {
	t.Parallel()

	pipe, err := buildPipeline(defaults(t).Thresholds)
	require.NoError(t, err)

	names := make([]string, 0, 15)
	for _, step := range pipe.Steps() {
		names = append(names, step.Name())
	}
	assert.Equal(t, []string{
		"lowpass_lis1", "lowpass_lis2", "chunk_lis1", "chunk_lis2",
		"filter_pairs", "filter_colinear", "rot_from_pairs",
		"relative_accel", "travel_vector", "project_accel",
		"project_mag", "mag_baseline", "calibration_chunks",
		"angle_travel", "mag_travel_fit",
	}, names)
	assert.Equal(t, []string{keyAccelLis1, keyAccelLis2, keyAngle, keyMag}, pipe.Sources())
}

func TestBuildPipelineRejectsThresholds(t *testing.T) {
	t.Parallel()

	th := defaults(t).Thresholds
	th.ChunkSeconds = 0
	_, err := buildPipeline(th)
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	th = defaults(t).Thresholds
	th.DetectSkips = -1
	_, err = buildPipeline(th)
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestLoaders(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path, format string
		wantBinary   bool
		wantCount    int
		wantErr      error
	}{
		"auto csv":     {path: "logs/log018.csv", format: config.FormatAuto, wantCount: 4},
		"auto bin":     {path: "logs/LOG018.BIN", format: config.FormatAuto, wantBinary: true, wantCount: 1},
		"forced csv":   {path: "logs/log018.bin", format: config.FormatCSV, wantCount: 4},
		"forced bin":   {path: "logs/log018", format: config.FormatBin, wantBinary: true, wantCount: 1},
		"unknown kind": {path: "logs/log018", format: "xml", wantErr: pipeline.ErrConfiguration},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := loaders(config.Config{LogPath: tt.path, LogFormat: tt.format})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			_, isBinary := got[0].(*loader.BinaryLoader)
			assert.Equal(t, tt.wantBinary, isBinary)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(config.Config{LogHandler: config.HandlerJSON}, &buf)
	logger.Debug("hidden")
	logger.Info("step done", "step", "00_lowpass_lis1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "step done", line["msg"])
	assert.Equal(t, "00_lowpass_lis1", line["step"])

	buf.Reset()
	logger = newLogger(config.Config{LogHandler: config.HandlerText, Verbose: true}, &buf)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestNewRenderer(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &render.PlotRenderer{}, newRenderer(config.Config{Plots: config.PlotsPNG}))
	assert.IsType(t, &render.HTMLRenderer{}, newRenderer(config.Config{Plots: config.PlotsHTML}))
	assert.Nil(t, newRenderer(config.Config{Plots: config.PlotsNone}))
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{config.BackendDir, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			store, closeStore, err := openStore(config.Config{
				OutputDir:    t.TempDir(),
				CacheBackend: backend,
				LogPath:      "logs/log018.csv",
			}, nil)
			require.NoError(t, err)
			require.NotNil(t, store)
			require.NoError(t, closeStore())
		})
	}

	assert.Equal(t, "log018", cacheName("logs/log018.csv"))
}

func TestRunRequiresLog(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), []string{"-log", "", "-out", t.TempDir()}, io.Discard)
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}
