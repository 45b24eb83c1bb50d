package samplegrid

import (
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/samplegrid/internal/bitgrid"
	"github.com/banshee-data/samplegrid/internal/fsutil"
	"github.com/banshee-data/samplegrid/internal/kalman"
	"github.com/banshee-data/samplegrid/internal/textmap"
)

// Grid is a belief grid. All methods are safe for concurrent use; mutating
// methods take the write lock for their whole duration.
type Grid struct {
	mu sync.RWMutex

	width  int // x extent
	height int // y extent

	nodes       []kalman.Node // len = width * height, idx = y*width + x
	realization *bitgrid.Grid
	groundTruth *bitgrid.Grid

	rng Rand
}

// Idx returns the linear index of (x, y).
func (g *Grid) Idx(x, y int) int { return y*g.width + x }

func newGrid(width, height int, o options) *Grid {
	nodes := make([]kalman.Node, width*height)
	for i := range nodes {
		nodes[i] = kalman.Node{State: 0, Covariance: o.covariance}
	}
	return &Grid{
		width:       width,
		height:      height,
		nodes:       nodes,
		realization: bitgrid.New(width, height),
		groundTruth: bitgrid.New(width, height),
		rng:         o.rng,
	}
}

// New builds a grid from explicit belief states indexed states[x][y] and a
// ground truth bitmap of the same size. The truth is copied, and the
// realization is synchronised from the states before New returns.
func New(states [][]float64, truth *bitgrid.Grid, opts ...Option) (*Grid, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 || len(states[0]) == 0 {
		return nil, fmt.Errorf("%w: empty state matrix", ErrMalformedInput)
	}
	width, height := len(states), len(states[0])
	for x, col := range states {
		if len(col) != height {
			return nil, fmt.Errorf("%w: states[%d] has %d cells, want %d", ErrMalformedInput, x, len(col), height)
		}
	}
	if truth == nil {
		return nil, fmt.Errorf("%w: nil ground truth", ErrMalformedInput)
	}
	if truth.Width() != width || truth.Height() != height {
		return nil, fmt.Errorf("%w: ground truth is %dx%d, states are %dx%d",
			ErrMalformedInput, truth.Width(), truth.Height(), width, height)
	}

	g := newGrid(width, height, o)
	for x, col := range states {
		for y, s := range col {
			g.nodes[g.Idx(x, y)].State = s
		}
	}
	g.groundTruth = truth.Clone()
	g.syncArea(0, 0, width, height)

	diagf("built %dx%d grid from state matrix", width, height)
	return g, nil
}

// NewWithSize builds a width x height grid with every state at 0 and both
// bitmaps clear.
func NewWithSize(width, height int, opts ...Option) (*Grid, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %dx%d", ErrMalformedInput, width, height)
	}
	if width > math.MaxInt/height {
		return nil, fmt.Errorf("%w: size %dx%d overflows the cell count", ErrMalformedInput, width, height)
	}
	return newGrid(width, height, o), nil
}

// NewFromString builds a grid from a text map. Every open cell gets state
// 1.0 and the ground truth is derived from the states. The realization is
// left clear until one of the Sync methods or SampleAll runs.
func NewFromString(text string, opts ...Option) (*Grid, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	g, err := textmap.Parse(text, func(w, h int) *Grid {
		return newGrid(w, h, o)
	}, func(g *Grid, x, y int) {
		g.nodes[g.Idx(x, y)].State = 1.0
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	g.deriveGroundTruth()

	diagf("built %dx%d grid from text map (%d open cells)", g.width, g.height, g.groundTruth.Count())
	return g, nil
}

// NewFromFile reads a text map from fsys and builds a grid from it. A nil
// fsys reads from the OS filesystem.
func NewFromFile(fsys fsutil.FileSystem, path string, opts ...Option) (*Grid, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %q: %w", path, err)
	}
	g, err := NewFromString(string(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", path, err)
	}
	return g, nil
}

// Width returns the x extent.
func (g *Grid) Width() int { return g.width }

// Height returns the y extent.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) is a cell of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Grid) checkBounds(x, y int) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("%w: (%d, %d) outside %dx%d grid", ErrOutOfBounds, x, y, g.width, g.height)
	}
	return nil
}

// State returns the belief state of (x, y).
func (g *Grid) State(x, y int) (float64, error) {
	if err := g.checkBounds(x, y); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[g.Idx(x, y)].State, nil
}

// Covariance returns the estimate covariance of (x, y).
func (g *Grid) Covariance(x, y int) (float64, error) {
	if err := g.checkBounds(x, y); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[g.Idx(x, y)].Covariance, nil
}

// Open reports whether the realization bit at (x, y) is set.
func (g *Grid) Open(x, y int) (bool, error) {
	if err := g.checkBounds(x, y); err != nil {
		return false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.realization.Get(x, y), nil
}

// Truth reports whether the ground truth bit at (x, y) is set.
func (g *Grid) Truth(x, y int) (bool, error) {
	if err := g.checkBounds(x, y); err != nil {
		return false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.groundTruth.Get(x, y), nil
}

// RealizationString renders the realization bitmap as a text map.
func (g *Grid) RealizationString() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.realization.String()
}

// GroundTruthString renders the ground truth bitmap as a text map.
func (g *Grid) GroundTruthString() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.groundTruth.String()
}
