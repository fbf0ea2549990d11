package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/signal"
)

// PlotRenderer writes PNG images.
type PlotRenderer struct {
	Width, Height vg.Length
}

// NewPlotRenderer returns a renderer producing 14x6 inch images.
func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{Width: 14 * vg.Inch, Height: 6 * vg.Inch}
}

func (r *PlotRenderer) Render(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := resolve(req)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = req.title()
	p.Legend.Top = true
	p.Legend.Left = false

	switch req.Kind {
	case model.PlotLine:
		err = addLines(p, req.Artifact.(*signal.TimeSeries))
	case model.PlotScatter:
		err = addScatters(p, req.Artifact.(*signal.Array))
	}
	if err != nil {
		return errors.Wrapf(err, "unable to plot %s", req.Key)
	}

	path := req.Path(".png")
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", filepath.Dir(path))
	}

	err = p.Save(r.Width, r.Height, path)
	if err != nil {
		return errors.Wrapf(err, "unable to save %s", path)
	}

	return nil
}

func addLines(p *plot.Plot, ts *signal.TimeSeries) error {
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = ts.Units()

	times := ts.Times()
	_, cols := ts.Dims()
	for j := range cols {
		pts := make(plotter.XYs, len(times))
		for i, t := range times {
			pts[i] = plotter.XY{X: t, Y: ts.At(i, j)}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(j)
		line.Width = vg.Points(1)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("col %d", j), line)
	}

	return nil
}

func addScatters(p *plot.Plot, arr *signal.Array) error {
	p.X.Label.Text = "col 0"

	rows, cols := arr.Dims()
	for j := 1; j < cols; j++ {
		pts := make(plotter.XYs, rows)
		for i := range rows {
			pts[i] = plotter.XY{X: arr.At(i, 0), Y: arr.At(i, j)}
		}

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = plotutil.Color(j - 1)
		scatter.GlyphStyle.Radius = vg.Points(2)

		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("col %d", j), scatter)
	}

	return nil
}

var _ Renderer = (*PlotRenderer)(nil)
