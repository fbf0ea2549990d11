// Package render draws workspace artifacts to files after a step has run.
package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/signal"
)

// ErrNotDrawable is returned for artifacts that have no plot kind.
var ErrNotDrawable = errors.New("artifact cannot be drawn")

// Request describes one plot.
type Request struct {
	StepID   string
	Key      string
	Title    string
	Kind     model.PlotKind
	Artifact signal.Artifact
	Dir      string
}

// Path returns the output file for the request with the given extension.
func (r Request) Path(ext string) string {
	return filepath.Join(r.Dir, r.StepID, strings.ReplaceAll(r.Key, "/", "_")+ext)
}

func (r Request) title() string {
	if r.Title != "" {
		return r.Title
	}

	return r.StepID + " " + r.Key
}

// Renderer draws a single artifact.
type Renderer interface {
	Render(ctx context.Context, req Request) error
}

// KindFor picks the plot kind of an artifact. Series are drawn as lines, arrays with at least two
// columns as scatters of every other column against the first. Anything else is PlotNone.
func KindFor(artifact signal.Artifact) model.PlotKind {
	switch v := artifact.(type) {
	case *signal.TimeSeries:
		return model.PlotLine
	case *signal.Array:
		if _, cols := v.Dims(); cols >= 2 {
			return model.PlotScatter
		}
	}

	return model.PlotNone
}

// resolve fills in an automatic kind and checks the artifact matches it.
func resolve(req Request) (Request, error) {
	if req.Kind == "" || req.Kind == model.PlotAuto {
		req.Kind = KindFor(req.Artifact)
	}

	switch req.Kind {
	case model.PlotLine:
		if _, ok := req.Artifact.(*signal.TimeSeries); ok {
			return req, nil
		}
	case model.PlotScatter:
		if arr, ok := req.Artifact.(*signal.Array); ok {
			if _, cols := arr.Dims(); cols >= 2 {
				return req, nil
			}
		}
	}

	return req, errors.Wrapf(ErrNotDrawable, "%s as %s (%T)", req.Key, req.Kind, req.Artifact)
}

func create(path string) (*os.File, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", filepath.Dir(path))
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", path)
	}

	return file, nil
}

// Multi renders every request with each renderer in turn and stops at the first error.
type Multi []Renderer

func (m Multi) Render(ctx context.Context, req Request) error {
	for _, r := range m {
		err := r.Render(ctx, req)
		if err != nil {
			return err
		}
	}

	return nil
}

var _ Renderer = Multi(nil)
