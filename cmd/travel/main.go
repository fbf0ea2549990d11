// Command travel estimates suspension travel from a sensor log.
//
// It aligns the two accelerometers, extracts the relative motion along the travel direction,
// calibrates the magnetometer against that motion and fits it against the linkage angle. Step
// outputs are cached so a rerun only recomputes what changed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-travel/internal/config"
	"github.com/askiada/go-travel/internal/loader"
	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/pipeline/cache"
	"github.com/askiada/go-travel/pkg/pipeline/drawer"
	"github.com/askiada/go-travel/pkg/pipeline/measure"
	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/pipeline/render"
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}

	if cfg.LogHandler == config.HandlerJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}

	return slog.New(slog.NewTextHandler(out, opts))
}

// cacheName scopes the cache to the log file so two logs never share step outputs.
func cacheName(logPath string) string {
	base := filepath.Base(logPath)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// openStore opens the cache shared by every run of the same log. The returned closer is never
// nil.
func openStore(cfg config.Config, logger *slog.Logger) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	dir := filepath.Join(cfg.OutputDir, "cache")

	switch cfg.CacheBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, errors.Wrapf(err, "unable to create %s", dir)
		}
		store, err := cache.OpenSQLite(filepath.Join(dir, cacheName(cfg.LogPath)+".db"), logger)
		if err != nil {
			return nil, noop, err
		}

		return store, store.Close, nil
	default:
		store, err := cache.NewDirStore(filepath.Join(dir, cacheName(cfg.LogPath)))
		if err != nil {
			return nil, noop, err
		}

		return store, noop, nil
	}
}

func newRenderer(cfg config.Config) render.Renderer {
	switch cfg.Plots {
	case config.PlotsPNG:
		return render.NewPlotRenderer()
	case config.PlotsHTML:
		return &render.HTMLRenderer{}
	default:
		return nil
	}
}

func run(ctx context.Context, args []string, logOut io.Writer) error {
	fs := flag.NewFlagSet("travel", flag.ContinueOnError)
	cfg, err := config.ParseConfigFromArgs(fs, args, nil)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, logOut)
	runID := uuid.NewString()
	runDir := filepath.Join(cfg.OutputDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrapf(err, "unable to create %s", runDir)
	}
	logger = logger.With("run_id", runID)

	pipe, err := buildPipeline(cfg.Thresholds)
	if err != nil {
		return errors.Wrap(err, "unable to build pipeline")
	}

	sources, err := loaders(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	ws := pipeline.NewWorkspace()
	if err := loader.LoadAll(ctx, ws, sources...); err != nil {
		return errors.Wrapf(err, "unable to load %s", cfg.LogPath)
	}
	logger.Info("log loaded", "path", cfg.LogPath, "keys", ws.Keys(), "elapsed", measure.Round(time.Since(start)))

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("unable to close cache", "error", err)
		}
	}()

	msr := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{measure.PipelineMeasure(msr)}
	if cfg.DrawGraph {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewDOTDrawer(filepath.Join(runDir, "pipeline.dot")), msr))
	}

	opts := []pipeline.RunnerOption{
		pipeline.WithLogger(logger),
		pipeline.WithRunID(runID),
		pipeline.WithCache(store, cfg.ReadCache, cfg.WriteCache),
		pipeline.WithHooks(hooks...),
	}
	if renderer := newRenderer(cfg); renderer != nil {
		opts = append(opts, pipeline.WithRenderer(renderer, filepath.Join(runDir, "plots")))
	}

	report, err := pipeline.NewRunner(opts...).Run(ctx, ws, pipe)
	if err != nil {
		return err
	}

	for _, step := range report.Steps {
		logger.Info("step summary", "step", step.ID, "cache_hit", step.CacheHit, "elapsed", measure.Round(step.Elapsed))
	}
	logger.Info("run finished", "steps", len(report.Steps), "cache_hits", report.CacheHits(),
		"elapsed", measure.Round(time.Since(start)), "dir", runDir)

	return nil
}
