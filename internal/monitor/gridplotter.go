package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/samplegrid/internal/fsutil"
	"github.com/banshee-data/samplegrid/internal/samplegrid"
	"github.com/banshee-data/samplegrid/internal/textmap"
	"github.com/banshee-data/samplegrid/internal/timeutil"
)

// DefaultPlotWidth is the image width used by PlotCells and PlotGrid.
const DefaultPlotWidth = 8 * vg.Inch

// ErrEmptyGrid is returned when asked to plot a grid with no cells.
var ErrEmptyGrid = errors.New("empty grid")

// cellField adapts a per-cell value function to plotter.GridXYZ. Column c is
// x and row r is y.
type cellField struct {
	width, height int
	z             func(x, y int) float64
}

func (f cellField) Dims() (c, r int) { return f.width, f.height }
func (f cellField) Z(c, r int) float64 { return f.z(c, r) }
func (f cellField) X(c int) float64 { return float64(c) }
func (f cellField) Y(r int) float64 { return float64(r) }

// PlotCells writes a PNG of a width x height grid to file: open cells are
// drawn hot, blocked cells cold, with optional path and heat overlays.
func PlotCells(fsys fsutil.FileSystem, file string, width, height int, open func(x, y int) bool, path []textmap.Point, heat map[textmap.Point]float64) error {
	field := cellField{width: width, height: height, z: func(x, y int) float64 {
		if open(x, y) {
			return 1
		}
		return 0
	}}
	return plotField(fsys, file, DefaultPlotWidth, "cells", field, path, heat)
}

// PlotGrid writes a PNG of the belief states in snap to file.
func PlotGrid(fsys fsutil.FileSystem, file string, snap *samplegrid.Snapshot, path []textmap.Point, heat map[textmap.Point]float64) error {
	return plotSnapshot(fsys, file, DefaultPlotWidth, snap, path, heat)
}

func plotSnapshot(fsys fsutil.FileSystem, file string, width vg.Length, snap *samplegrid.Snapshot, path []textmap.Point, heat map[textmap.Point]float64) error {
	field := cellField{width: snap.Width, height: snap.Height, z: func(x, y int) float64 {
		return snap.States[snap.Idx(x, y)]
	}}
	return plotField(fsys, file, width, "belief P(open)", field, path, heat)
}

func plotField(fsys fsutil.FileSystem, file string, width vg.Length, title string, field cellField, path []textmap.Point, heat map[textmap.Point]float64) error {
	if field.width <= 0 || field.height <= 0 {
		return fmt.Errorf("plot %s: %w", file, ErrEmptyGrid)
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = -0.5, float64(field.width)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(field.height)-0.5
	// Row 0 is the first line of the text map, so y grows downwards.
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	hm := plotter.NewHeatMap(field, palette.Heat(16, 1))
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	inGrid := func(pt textmap.Point) bool {
		return pt.X >= 0 && pt.Y >= 0 && pt.X < field.width && pt.Y < field.height
	}

	if len(heat) > 0 {
		pts := make(plotter.XYs, 0, len(heat))
		vals := make([]float64, 0, len(heat))
		maxHeat := 0.0
		for pt, v := range heat {
			if !inGrid(pt) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
			vals = append(vals, v)
			maxHeat = max(maxHeat, v)
		}
		if len(pts) > 0 {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return fmt.Errorf("plot %s: heat overlay: %w", file, err)
			}
			sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
				r := 0.5
				if maxHeat > 0 {
					r += 3.5 * vals[i] / maxHeat
				}
				return draw.GlyphStyle{
					Color:  color.RGBA{R: 30, G: 90, B: 220, A: 255},
					Radius: vg.Points(r),
					Shape:  draw.CircleGlyph{},
				}
			}
			p.Add(sc)
		}
	}

	if len(path) > 0 {
		pts := make(plotter.XYs, 0, len(path))
		for _, pt := range path {
			if inGrid(pt) {
				pts = append(pts, plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
			}
		}
		if len(pts) > 0 {
			line, marks, err := plotter.NewLinePoints(pts)
			if err != nil {
				return fmt.Errorf("plot %s: path overlay: %w", file, err)
			}
			pathColor := color.RGBA{R: 20, G: 160, B: 60, A: 255}
			line.Color = pathColor
			line.Width = vg.Points(2)
			marks.Color = pathColor
			marks.Shape = draw.PyramidGlyph{}
			p.Add(line, marks)
		}
	}

	height := width * vg.Length(field.height) / vg.Length(field.width)
	return savePNG(fsys, file, p, width, max(height, 2*vg.Inch))
}

func savePNG(fsys fsutil.FileSystem, file string, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("plot %s: %w", file, err)
	}
	out, err := fsys.Create(file)
	if err != nil {
		return fmt.Errorf("plot %s: %w", file, err)
	}
	if _, err := wt.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("plot %s: %w", file, err)
	}
	return out.Close()
}

// GridPlotter records grid statistics over a run and writes PNG plots of
// them, plus per-iteration grid images, into an output directory.
type GridPlotter struct {
	mu        sync.Mutex
	enabled   bool
	fsys      fsutil.FileSystem
	clock     timeutil.Clock
	width     vg.Length
	outputDir string

	samples   []StatsSample
	startTime time.Time
}

// StatsSample is one recorded iteration.
type StatsSample struct {
	Iteration int           `json:"iteration"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	samplegrid.Stats
}

// NewGridPlotter creates a plotter that writes through fsys. A zero width
// uses DefaultPlotWidth; a nil fsys or clock uses the real ones.
func NewGridPlotter(fsys fsutil.FileSystem, clock timeutil.Clock, width vg.Length) *GridPlotter {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if width <= 0 {
		width = DefaultPlotWidth
	}
	return &GridPlotter{fsys: fsys, clock: clock, width: width}
}

// Start resets the plotter for a new run writing into outputDir.
func (gp *GridPlotter) Start(outputDir string) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if err := gp.fsys.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	gp.outputDir = outputDir
	gp.enabled = true
	gp.samples = nil
	gp.startTime = gp.clock.Now()
	return nil
}

// Stop disables sampling. Call GeneratePlots to produce output files.
func (gp *GridPlotter) Stop() {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.enabled = false
}

// Sample records the statistics of one iteration.
func (gp *GridPlotter) Sample(iteration int, st samplegrid.Stats) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if !gp.enabled {
		return
	}
	gp.samples = append(gp.samples, StatsSample{
		Iteration: iteration,
		Elapsed:   gp.clock.Since(gp.startTime),
		Stats:     st,
	})
}

// Samples returns a copy of the recorded iterations.
func (gp *GridPlotter) Samples() []StatsSample {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return append([]StatsSample(nil), gp.samples...)
}

// PlotGrid writes a PNG of snap named name into the output directory.
func (gp *GridPlotter) PlotGrid(name string, snap *samplegrid.Snapshot, path []textmap.Point, heat map[textmap.Point]float64) error {
	gp.mu.Lock()
	dir := gp.outputDir
	gp.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("plot %s: plotter not started", name)
	}
	return plotSnapshot(gp.fsys, filepath.Join(dir, name), gp.width, snap, path, heat)
}

// GeneratePlots writes covariance.png (mean and max covariance per
// iteration) and realization.png (open cells and truth mismatches).
// It returns the files written.
func (gp *GridPlotter) GeneratePlots() ([]string, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.outputDir == "" {
		return nil, errors.New("plotter not started")
	}
	if len(gp.samples) == 0 {
		return nil, nil
	}

	type series struct {
		name  string
		value func(StatsSample) float64
	}
	plots := []struct {
		file, title, ylabel string
		series              []series
	}{
		{"covariance.png", "Estimate covariance", "covariance", []series{
			{"mean", func(s StatsSample) float64 { return s.MeanCovariance }},
			{"max", func(s StatsSample) float64 { return s.MaxCovariance }},
		}},
		{"realization.png", "Realization vs ground truth", "cells", []series{
			{"open", func(s StatsSample) float64 { return float64(s.OpenCells) }},
			{"truth open", func(s StatsSample) float64 { return float64(s.TruthOpenCells) }},
			{"mismatches", func(s StatsSample) float64 { return float64(s.Mismatches) }},
		}},
	}

	var written []string
	for _, chart := range plots {
		p := plot.New()
		p.Title.Text = chart.title
		p.X.Label.Text = "iteration"
		p.Y.Label.Text = chart.ylabel
		p.Legend.Top = true

		for i, s := range chart.series {
			pts := make(plotter.XYs, len(gp.samples))
			for j, sample := range gp.samples {
				pts[j] = plotter.XY{X: float64(sample.Iteration), Y: s.value(sample)}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return written, fmt.Errorf("plot %s: %w", chart.file, err)
			}
			line.Color = plotutil.Color(i)
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(s.name, line)
		}

		file := filepath.Join(gp.outputDir, chart.file)
		if err := savePNG(gp.fsys, file, p, gp.width, gp.width/2); err != nil {
			return written, err
		}
		written = append(written, file)
	}
	return written, nil
}
