package samplegrid

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/samplegrid/internal/textmap"
)

// Render draws the belief field as a text map, a cell being open when its
// state is non-zero, with optional path and heatmap overlays.
func (g *Grid) Render(path []textmap.Point, heat map[textmap.Point]float64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return textmap.Render(g.width, g.height, g.possiblyOpen, path, heat)
}

// possiblyOpen is the unchecked belief predicate. Caller holds a lock.
func (g *Grid) possiblyOpen(x, y int) bool {
	return g.nodes[g.Idx(x, y)].State != 0.0
}

// Snapshot is a consistent copy of the grid for inspection and rendering.
// Slices are row-major, idx = y*Width + x.
type Snapshot struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	States      []float64 `json:"states"`
	Covariances []float64 `json:"covariances"`
	Realization []bool    `json:"realization"`
	GroundTruth []bool    `json:"ground_truth"`
}

// Idx returns the linear index of (x, y) in the snapshot slices.
func (s *Snapshot) Idx(x, y int) int { return y*s.Width + x }

// PossiblyOpen reports whether the snapshot state of (x, y) is non-zero.
func (s *Snapshot) PossiblyOpen(x, y int) bool { return s.States[s.Idx(x, y)] != 0.0 }

// Open reports whether the snapshot realization bit of (x, y) is set.
func (s *Snapshot) Open(x, y int) bool { return s.Realization[s.Idx(x, y)] }

// Snapshot copies the grid under the read lock.
func (g *Grid) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.nodes)
	s := &Snapshot{
		Width:       g.width,
		Height:      g.height,
		States:      make([]float64, n),
		Covariances: make([]float64, n),
		Realization: make([]bool, n),
		GroundTruth: make([]bool, n),
	}
	for i, node := range g.nodes {
		s.States[i] = node.State
		s.Covariances[i] = node.Covariance
		s.Realization[i] = g.realization.GetIdx(i)
		s.GroundTruth[i] = g.groundTruth.GetIdx(i)
	}
	return s
}

// Stats summarises the belief field and how far the realization is from the
// ground truth.
type Stats struct {
	MeanState      float64 `json:"mean_state"`
	StateVariance  float64 `json:"state_variance"`
	MeanCovariance float64 `json:"mean_covariance"`
	MaxCovariance  float64 `json:"max_covariance"`
	OpenCells      int     `json:"open_cells"`
	TruthOpenCells int     `json:"truth_open_cells"`
	Mismatches     int     `json:"mismatches"` // realization bits that differ from the truth
}

// Stats computes summary statistics for the grid.
func (s *Snapshot) Stats() Stats {
	var st Stats
	if len(s.States) == 0 {
		return st
	}
	st.MeanState, st.StateVariance = stat.MeanVariance(s.States, nil)
	if len(s.States) < 2 {
		st.StateVariance = 0 // sample variance is undefined for one cell
	}
	st.MeanCovariance = stat.Mean(s.Covariances, nil)
	st.MaxCovariance = floats.Max(s.Covariances)
	for i := range s.Realization {
		if s.Realization[i] {
			st.OpenCells++
		}
		if s.GroundTruth[i] {
			st.TruthOpenCells++
		}
		if s.Realization[i] != s.GroundTruth[i] {
			st.Mismatches++
		}
	}
	return st
}

// Stats computes summary statistics for the current grid.
func (g *Grid) Stats() Stats {
	return g.Snapshot().Stats()
}
