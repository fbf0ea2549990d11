// Package config reads the travel command configuration from TRAVEL_* environment variables and
// command-line flags. Flags override the environment.
package config

import (
	"flag"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/align"
	"github.com/askiada/go-travel/pkg/calib"
	"github.com/askiada/go-travel/pkg/dsp"
	"github.com/askiada/go-travel/pkg/pipeline"
	"github.com/askiada/go-travel/pkg/travel"
)

// Accepted values of the enumerated settings.
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatBin  = "bin"

	BackendDir    = "dir"
	BackendSQLite = "sqlite"

	PlotsPNG  = "png"
	PlotsHTML = "html"
	PlotsNone = "none"

	HandlerText = "text"
	HandlerJSON = "json"
)

// Config holds everything the travel command needs.
type Config struct {
	LogPath      string `env:"TRAVEL_LOG_PATH"`
	LogFormat    string `env:"TRAVEL_LOG_FORMAT"    envDefault:"auto"`
	OutputDir    string `env:"TRAVEL_OUTPUT_DIR"    envDefault:"run_artifacts"`
	ReadCache    bool   `env:"TRAVEL_READ_CACHE"    envDefault:"true"`
	WriteCache   bool   `env:"TRAVEL_WRITE_CACHE"   envDefault:"true"`
	CacheBackend string `env:"TRAVEL_CACHE_BACKEND" envDefault:"dir"`
	Plots        string `env:"TRAVEL_PLOTS"         envDefault:"png"`
	LogHandler   string `env:"TRAVEL_LOG_HANDLER"   envDefault:"text"`
	Verbose      bool   `env:"TRAVEL_VERBOSE"`
	DrawGraph    bool   `env:"TRAVEL_DRAW_GRAPH"    envDefault:"true"`

	Thresholds Thresholds `envPrefix:"TRAVEL_"`
}

// Thresholds holds the empirically tuned constants of every step.
type Thresholds struct {
	FilterCutoffHz float64 `env:"FILTER_CUTOFF_HZ" envDefault:"20"`
	FilterOrder    int     `env:"FILTER_ORDER"     envDefault:"3"`
	ChunkSeconds   float64 `env:"CHUNK_SECONDS"    envDefault:"0.25"`

	MinConfidence    float64 `env:"MIN_CONFIDENCE"     envDefault:"0.98"`
	MaxMagnitudeDiff float64 `env:"MAX_MAGNITUDE_DIFF" envDefault:"0.5"`
	ColinearAngleDeg float64 `env:"COLINEAR_ANGLE_DEG" envDefault:"10"`

	TravelThreshold float64 `env:"TRAVEL_THRESHOLD"  envDefault:"4.5"`
	TravelChunkSize int     `env:"TRAVEL_CHUNK_SIZE" envDefault:"10"`

	BaselineStillSeconds  float64 `env:"BASELINE_STILL_SECONDS"   envDefault:"0.1"`
	BaselineStillAccelMax float64 `env:"BASELINE_STILL_ACCEL_MAX" envDefault:"0.5"`

	DetectStillSeconds    float64 `env:"DETECT_STILL_SECONDS"     envDefault:"0.1"`
	DetectBumpSeconds     float64 `env:"DETECT_BUMP_SECONDS"      envDefault:"0.3"`
	DetectStrideSeconds   float64 `env:"DETECT_STRIDE_SECONDS"    envDefault:"0.05"`
	DetectStillAccelMax   float64 `env:"DETECT_STILL_ACCEL_MAX"   envDefault:"1000"`
	DetectBumpMagDelta    float64 `env:"DETECT_BUMP_MAG_DELTA"    envDefault:"1000"`
	DetectMinDisplacement float64 `env:"DETECT_MIN_DISPLACEMENT"  envDefault:"20"`
	DetectSkips           int     `env:"DETECT_SKIPS"             envDefault:"3"`
	AccelScale            float64 `env:"ACCEL_SCALE"              envDefault:"1000"`

	MagProjectThreshold float64 `env:"MAG_PROJECT_THRESHOLD" envDefault:"3000"`
	FitThreshold        float64 `env:"FIT_THRESHOLD"         envDefault:"1500"`
	FitDegree           int     `env:"FIT_DEGREE"            envDefault:"3"`

	Hypotenuse     float64 `env:"LINKAGE_HYPOTENUSE"   envDefault:"120"`
	TopAdjacent    float64 `env:"LINKAGE_TOP_ADJACENT" envDefault:"118.75"`
	ZeroPercentile float64 `env:"ZERO_PERCENTILE"      envDefault:"95"`
}

// Load parses the configuration from environment. A nil environment reads the process
// environment.
func Load(environment map[string]string) (Config, error) {
	var cfg Config

	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	return cfg, nil
}

// RegisterFlags binds the command-line flags to cfg, using its current values as defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "sensor log to process (.csv or .bin)")
	fs.StringVar(&cfg.LogFormat, "format", cfg.LogFormat, "log format: auto, csv or bin")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for cache, plots and graph")
	fs.BoolVar(&cfg.ReadCache, "read-cache", cfg.ReadCache, "restore step outputs from the cache")
	fs.BoolVar(&cfg.WriteCache, "write-cache", cfg.WriteCache, "store step outputs in the cache")
	fs.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "cache backend: dir or sqlite")
	fs.StringVar(&cfg.Plots, "plots", cfg.Plots, "plot output: png, html or none")
	fs.StringVar(&cfg.LogHandler, "log-handler", cfg.LogHandler, "log output: text or json")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "debug logging")
	fs.BoolVar(&cfg.DrawGraph, "graph", cfg.DrawGraph, "write the pipeline graph as DOT")

	th := &cfg.Thresholds
	fs.Float64Var(&th.FilterCutoffHz, "cutoff", th.FilterCutoffHz, "low-pass cutoff in Hz")
	fs.Float64Var(&th.ChunkSeconds, "chunk", th.ChunkSeconds, "alignment chunk duration in seconds")
	fs.Float64Var(&th.MinConfidence, "min-confidence", th.MinConfidence, "minimum chunk direction confidence")
	fs.Float64Var(&th.ColinearAngleDeg, "colinear-angle", th.ColinearAngleDeg, "minimum angle to the aggregate direction")
	fs.Float64Var(&th.TravelThreshold, "travel-threshold", th.TravelThreshold, "minimum chunk acceleration for the travel vector")
	fs.IntVar(&th.DetectSkips, "skips", th.DetectSkips, "positions skipped after a calibration window")
	fs.Float64Var(&th.DetectMinDisplacement, "min-displacement", th.DetectMinDisplacement, "minimum calibration displacement")
	fs.Float64Var(&th.FitThreshold, "fit-threshold", th.FitThreshold, "minimum projected reading used by the fit")
}

// ParseConfigFromArgs loads defaults from env, then parses flags and validates the result.
func ParseConfigFromArgs(fs *flag.FlagSet, args []string, environment map[string]string) (Config, error) {
	cfg, err := Load(environment)
	if err != nil {
		return Config{}, err
	}

	RegisterFlags(fs, &cfg)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the enumerated settings and the required log path.
func (c Config) Validate() error {
	if c.LogPath == "" {
		return errors.Wrap(pipeline.ErrConfiguration, "log path is required")
	}

	for _, check := range []struct {
		name, value string
		allowed     []string
	}{
		{"format", c.LogFormat, []string{FormatAuto, FormatCSV, FormatBin}},
		{"cache", c.CacheBackend, []string{BackendDir, BackendSQLite}},
		{"plots", c.Plots, []string{PlotsPNG, PlotsHTML, PlotsNone}},
		{"log-handler", c.LogHandler, []string{HandlerText, HandlerJSON}},
	} {
		if !slices.Contains(check.allowed, check.value) {
			return errors.Wrapf(pipeline.ErrConfiguration, "%s %q not in %v", check.name, check.value, check.allowed)
		}
	}

	if c.Thresholds.ChunkSeconds <= 0 || c.Thresholds.FilterCutoffHz <= 0 {
		return errors.Wrapf(pipeline.ErrConfiguration, "chunk %g s, cutoff %g Hz", c.Thresholds.ChunkSeconds, c.Thresholds.FilterCutoffHz)
	}

	return nil
}

// LowPass returns the accelerometer filter settings.
func (t Thresholds) LowPass() dsp.Spec {
	return dsp.Spec{CutoffHz: t.FilterCutoffHz, Order: t.FilterOrder, Band: dsp.LowPass}
}

func (t Thresholds) PairFilter() align.PairFilterConfig {
	return align.PairFilterConfig{MinConfidence: t.MinConfidence, MaxMagnitudeDiff: t.MaxMagnitudeDiff}
}

func (t Thresholds) Colinear() align.ColinearConfig {
	return align.ColinearConfig{MinAngleDeg: t.ColinearAngleDeg}
}

func (t Thresholds) TravelVector() travel.VectorConfig {
	return travel.VectorConfig{ChunkSize: t.TravelChunkSize, Threshold: t.TravelThreshold}
}

func (t Thresholds) Angle() travel.AngleConfig {
	return travel.AngleConfig{Hypotenuse: t.Hypotenuse, TopAdjacent: t.TopAdjacent, ZeroPercentile: t.ZeroPercentile}
}

func (t Thresholds) Baseline() calib.BaselineConfig {
	return calib.BaselineConfig{StillSeconds: t.BaselineStillSeconds, StillAccelMax: t.BaselineStillAccelMax}
}

func (t Thresholds) Detector() calib.DetectorConfig {
	return calib.DetectorConfig{
		StillSeconds:    t.DetectStillSeconds,
		BumpSeconds:     t.DetectBumpSeconds,
		StrideSeconds:   t.DetectStrideSeconds,
		StillAccelMax:   t.DetectStillAccelMax,
		BumpMagDelta:    t.DetectBumpMagDelta,
		MinDisplacement: t.DetectMinDisplacement,
		Skips:           t.DetectSkips,
		AccelScale:      t.AccelScale,
	}
}

func (t Thresholds) ProjectMag() calib.ProjectConfig {
	return calib.ProjectConfig{Threshold: t.MagProjectThreshold}
}

// Fit keeps the default error bands.
func (t Thresholds) Fit() calib.FitConfig {
	cfg := calib.DefaultFitConfig()
	cfg.Threshold = t.FitThreshold
	cfg.Degree = t.FitDegree

	return cfg
}
