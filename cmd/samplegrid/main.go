// Command samplegrid loads a text map, smooths its belief field and runs the
// sample/observe loop, writing text, PNG and HTML snapshots of the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/samplegrid/internal/config"
	"github.com/banshee-data/samplegrid/internal/fsutil"
	"github.com/banshee-data/samplegrid/internal/monitor"
	"github.com/banshee-data/samplegrid/internal/monitoring"
	"github.com/banshee-data/samplegrid/internal/samplegrid"
	"github.com/banshee-data/samplegrid/internal/textmap"
	"github.com/banshee-data/samplegrid/internal/timeutil"
	"github.com/banshee-data/samplegrid/internal/version"
)

// cliOptions holds the flags that are not tuning parameters.
type cliOptions struct {
	mapPath     string
	outDir      string
	listen      string
	probe       *textmap.Point
	verbose     bool
	showVersion bool
}

// env carries the process dependencies so run can be tested.
type env struct {
	fsys   fsutil.FileSystem
	clock  timeutil.Clock
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.SetOutput(os.Stderr, "samplegrid: ")
	e := env{fsys: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}, stdout: os.Stdout, stderr: os.Stderr}
	if err := run(ctx, os.Args[1:], e); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("samplegrid: %v", err)
	}
}

// parseFlags parses args into CLI options and a tuning config. Values from
// -config are the base; flags given explicitly on the command line win.
func parseFlags(args []string, fsys fsutil.FileSystem, stderr io.Writer) (*cliOptions, *config.TuningConfig, error) {
	fs := flag.NewFlagSet("samplegrid", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := config.EmptyTuningConfig()
	opts := &cliOptions{}
	fs.StringVar(&opts.mapPath, "map", "", "Text map to load ('@' blocked, anything else open)")
	configPath := fs.String("config", "", "Tuning config JSON (defaults are built in)")
	blurSize := fs.Int("blur-size", defaults.GetBlurKernelSize(), "Gaussian kernel size (odd)")
	sigma := fs.Float64("sigma", defaults.GetBlurSigma(), "Gaussian kernel sigma")
	iterations := fs.Int("iterations", defaults.GetIterations(), "Number of sample/observe iterations")
	noise := fs.Float64("noise", defaults.GetMeasurementNoise(), "Measurement noise covariance")
	seed := fs.Uint64("seed", defaults.GetSeed(), "Sampling seed (0 = random)")
	radius := fs.Int("radius", defaults.GetSyncRadius(), "Sync radius around the probe cell")
	probe := fs.String("probe", "", "Observe only this cell, as x,y, and resync its neighbourhood")
	fs.StringVar(&opts.outDir, "out", "runs", "Directory for run outputs")
	fs.StringVar(&opts.listen, "listen", "", "Serve the grid monitor on this address (e.g. :8082)")
	fs.BoolVar(&opts.verbose, "v", false, "Log construction and per-iteration diagnostics")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.showVersion {
		return opts, defaults, nil
	}
	if opts.mapPath == "" {
		return nil, nil, errors.New("-map is required")
	}

	tc := defaults
	if *configPath != "" {
		loaded, err := config.LoadTuningConfigFS(fsys, *configPath)
		if err != nil {
			return nil, nil, err
		}
		tc = loaded
	}

	var ferr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "blur-size":
			tc.BlurKernelSize = blurSize
		case "sigma":
			tc.BlurSigma = sigma
		case "iterations":
			tc.Iterations = iterations
		case "noise":
			tc.MeasurementNoise = noise
		case "seed":
			tc.Seed = seed
		case "radius":
			tc.SyncRadius = radius
		case "probe":
			p, err := parsePoint(*probe)
			if err != nil {
				ferr = fmt.Errorf("invalid -probe: %w", err)
				return
			}
			opts.probe = &p
		}
	})
	if ferr != nil {
		return nil, nil, ferr
	}
	if err := tc.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, tc, nil
}

func parsePoint(s string) (textmap.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return textmap.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return textmap.Point{}, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return textmap.Point{}, err
	}
	return textmap.Point{X: x, Y: y}, nil
}

// runSummary is written to summary.json at the end of a run.
type runSummary struct {
	RunID      string               `json:"run_id"`
	Map        string               `json:"map"`
	Started    time.Time            `json:"started"`
	Finished   time.Time            `json:"finished"`
	Iterations int                  `json:"iterations"`
	Tuning     *config.TuningConfig `json:"tuning"`
	Initial    samplegrid.Stats     `json:"initial"`
	Final      samplegrid.Stats     `json:"final"`

	History []monitor.StatsSample `json:"history"`
}

func run(ctx context.Context, args []string, e env) error {
	opts, tc, err := parseFlags(args, e.fsys, e.stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(e.stdout, "samplegrid %s\n", version.String())
		return nil
	}
	if opts.verbose {
		samplegrid.SetLogWriters(e.stderr, e.stderr, e.stderr)
		defer samplegrid.SetLogWriters(nil, nil, nil)
	}

	grid, err := samplegrid.NewFromFile(e.fsys, opts.mapPath, samplegrid.ConfigFromTuning(tc).Options()...)
	if err != nil {
		return err
	}
	if opts.probe != nil && !grid.InBounds(opts.probe.X, opts.probe.Y) {
		return fmt.Errorf("probe %d,%d: %w", opts.probe.X, opts.probe.Y, samplegrid.ErrOutOfBounds)
	}

	runID := uuid.NewString()
	started := e.clock.Now().UTC()
	runDir := filepath.Join(opts.outDir, started.Format("20060102_150405")+"-"+runID[:8])

	gp := monitor.NewGridPlotter(e.fsys, e.clock, vg.Length(tc.GetPlotWidthInches())*vg.Inch)
	if err := gp.Start(runDir); err != nil {
		return err
	}
	monitoring.Logf("run %s: %dx%d map %s -> %s", runID, grid.Width(), grid.Height(), opts.mapPath, runDir)

	var serverDone chan error
	if opts.listen != "" {
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address: opts.listen,
			Grid:    grid,
			RunID:   runID,
			Clock:   e.clock,
		})
		serverDone = make(chan error, 1)
		go func() { serverDone <- ws.Start(ctx) }()
	}

	if err := grid.Blur(tc.GetBlurKernelSize(), tc.GetBlurSigma()); err != nil {
		return err
	}
	grid.SyncAll()
	initial := grid.Stats()
	if err := gp.PlotGrid("blurred.png", grid.Snapshot(), nil, nil); err != nil {
		return err
	}

	noise := tc.GetMeasurementNoise()
	delay := tc.GetStepDelay()
	done := 0
	for i := 0; i < tc.GetIterations(); i++ {
		if ctx.Err() != nil {
			monitoring.Logf("run %s: interrupted after %d iterations", runID, done)
			break
		}
		if err := step(grid, opts.probe, noise, tc.GetSyncRadius()); err != nil {
			return err
		}
		st := grid.Stats()
		gp.Sample(i, st)
		done++
		if opts.verbose {
			monitoring.Logf("iteration %d: open=%d mismatches=%d mean_cov=%.4g", i, st.OpenCells, st.Mismatches, st.MeanCovariance)
		}
		if delay > 0 {
			e.clock.Sleep(delay)
		}
	}
	gp.Stop()

	if err := writeOutputs(e.fsys, runDir, grid, gp, opts.probe); err != nil {
		return err
	}

	summary := runSummary{
		RunID:      runID,
		Map:        opts.mapPath,
		Started:    started,
		Finished:   e.clock.Now().UTC(),
		Iterations: done,
		Tuning:     tc,
		Initial:    initial,
		Final:      grid.Stats(),
		History:    gp.Samples(),
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := e.fsys.WriteFile(filepath.Join(runDir, "summary.json"), data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "run %s: %d iterations, %d/%d cells match the map, outputs in %s\n",
		runID, done, grid.Width()*grid.Height()-summary.Final.Mismatches, grid.Width()*grid.Height(), runDir)

	if serverDone != nil {
		monitoring.Logf("serving monitor on %s until interrupted", opts.listen)
		return <-serverDone
	}
	return nil
}

// step runs one iteration. Without a probe every cell is resampled and
// observed; with one, only the probe is observed and its neighbourhood
// resynchronised from the updated states.
func step(grid *samplegrid.Grid, probe *textmap.Point, noise float64, radius int) error {
	if probe == nil {
		grid.SampleAll()
		return grid.ObserveAll(noise)
	}
	if _, err := grid.Sample(probe.X, probe.Y); err != nil {
		return err
	}
	if _, err := grid.Observe(probe.X, probe.Y, noise); err != nil {
		return err
	}
	return grid.SyncRadius(probe.X, probe.Y, radius)
}

func writeOutputs(fsys fsutil.FileSystem, runDir string, grid *samplegrid.Grid, gp *monitor.GridPlotter, probe *textmap.Point) error {
	text := "# realization\n" + grid.RealizationString() +
		"# belief (state != 0)\n" + grid.Render(nil, nil) +
		"# ground truth\n" + grid.GroundTruthString()
	if err := fsys.WriteFile(filepath.Join(runDir, "final.txt"), []byte(text), 0644); err != nil {
		return err
	}

	var path []textmap.Point
	if probe != nil {
		path = []textmap.Point{*probe}
	}
	snap := grid.Snapshot()
	if err := gp.PlotGrid("grid.png", snap, path, nil); err != nil {
		return err
	}
	if err := plotCells(fsys, filepath.Join(runDir, "cells.png"), grid, grid.Open, path); err != nil {
		return err
	}
	if err := plotCells(fsys, filepath.Join(runDir, "truth.png"), grid, grid.Truth, nil); err != nil {
		return err
	}
	if _, err := gp.GeneratePlots(); err != nil {
		return err
	}

	out, err := fsys.Create(filepath.Join(runDir, "heatmap.html"))
	if err != nil {
		return err
	}
	if err := monitor.RenderHeatmapHTML(out, snap); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// plotCells draws one of the grid's bitmaps through an accessor such as
// Grid.Open or Grid.Truth.
func plotCells(fsys fsutil.FileSystem, file string, grid *samplegrid.Grid, bit func(x, y int) (bool, error), path []textmap.Point) error {
	return monitor.PlotCells(fsys, file, grid.Width(), grid.Height(), func(x, y int) bool {
		open, err := bit(x, y)
		return err == nil && open
	}, path, nil)
}
