package monitor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/samplegrid/internal/samplegrid"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderHeatmapHTML writes an HTML page with two heatmaps of snap: the
// belief P(open) per cell and the estimate covariance per cell.
func RenderHeatmapHTML(w io.Writer, snap *samplegrid.Snapshot) error {
	if snap == nil || snap.Width == 0 || snap.Height == 0 {
		return ErrEmptyGrid
	}

	st := snap.Stats()
	maxCov := 1.0
	if len(snap.Covariances) > 0 {
		maxCov = max(floats.Max(snap.Covariances), 1e-9)
	}

	page := components.NewPage()
	page.PageTitle = "Sample grid"
	page.AddCharts(
		cellHeatMap("Belief", fmt.Sprintf("%dx%d mean=%.3f open=%d/%d mismatches=%d",
			snap.Width, snap.Height, st.MeanState, st.OpenCells, len(snap.States), st.Mismatches),
			snap, snap.States, 1),
		cellHeatMap("Covariance", fmt.Sprintf("mean=%.4g max=%.4g", st.MeanCovariance, st.MaxCovariance),
			snap, snap.Covariances, maxCov),
	)
	return page.Render(w)
}

// cellHeatMap plots values (row-major, as in snap) with row 0 at the top.
func cellHeatMap(title, subtitle string, snap *samplegrid.Snapshot, values []float64, maxValue float64) *charts.HeatMap {
	xs := make([]string, snap.Width)
	for x := range xs {
		xs[x] = strconv.Itoa(x)
	}
	// Category axes grow upwards, so labels run from the last row.
	ys := make([]string, snap.Height)
	for i := range ys {
		ys[i] = strconv.Itoa(snap.Height - 1 - i)
	}

	data := make([]opts.HeatMapData, 0, len(values))
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, snap.Height - 1 - y, values[snap.Idx(x, y)]}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "x", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "y", Data: ys, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxValue),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xs).AddSeries(title, data)
	return hm
}
