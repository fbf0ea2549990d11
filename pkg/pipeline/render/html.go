package render

import (
	"context"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/askiada/go-travel/pkg/pipeline/model"
	"github.com/askiada/go-travel/pkg/signal"
)

// HTMLRenderer writes interactive charts.
type HTMLRenderer struct {
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

func (r *HTMLRenderer) Render(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := resolve(req)
	if err != nil {
		return err
	}

	init := opts.Initialization{PageTitle: req.title(), Width: "1200px", Height: "600px"}
	if r.AssetsHost != "" {
		init.AssetsHost = r.AssetsHost
	}
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: req.title(), Subtitle: req.Key}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	}

	file, err := create(req.Path(".html"))
	if err != nil {
		return err
	}
	defer file.Close()

	switch req.Kind {
	case model.PlotLine:
		err = lineChart(req.Artifact.(*signal.TimeSeries), global).Render(file)
	case model.PlotScatter:
		err = scatterChart(req.Artifact.(*signal.Array), global).Render(file)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to render %s", req.Key)
	}

	return nil
}

func lineChart(ts *signal.TimeSeries, global []charts.GlobalOpts) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(global,
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: ts.Units()}),
	)...)

	line.SetXAxis(ts.Times())
	_, cols := ts.Dims()
	for j := range cols {
		data := make([]opts.LineData, ts.Len())
		for i := range data {
			data[i] = opts.LineData{Value: ts.At(i, j)}
		}
		line.AddSeries(fmt.Sprintf("col %d", j), data)
	}

	return line
}

func scatterChart(arr *signal.Array, global []charts.GlobalOpts) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(append(global,
		charts.WithXAxisOpts(opts.XAxis{Name: "col 0", NameLocation: "middle", NameGap: 25, Type: "value"}),
	)...)

	rows, cols := arr.Dims()
	for j := 1; j < cols; j++ {
		data := make([]opts.ScatterData, rows)
		for i := range rows {
			data[i] = opts.ScatterData{Value: []interface{}{arr.At(i, 0), arr.At(i, j)}}
		}
		scatter.AddSeries(fmt.Sprintf("col %d", j), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	return scatter
}

var _ Renderer = (*HTMLRenderer)(nil)
