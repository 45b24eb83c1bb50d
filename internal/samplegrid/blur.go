package samplegrid

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/samplegrid/internal/convolve"
)

// Blur smooths the belief states with a size x size Gaussian kernel of the
// given sigma, clamping samples at the grid edge to the nearest cell.
//
// Only the states change: covariances and both bitmaps are left as they
// are, so callers that need the bitmaps to follow must re-run a Sync.
func (g *Grid) Blur(size int, sigma float64) error {
	kernel, err := convolve.GaussianKernel(size, sigma)
	if err != nil {
		return fmt.Errorf("blur: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// The whole field is convolved before any state is written back.
	smoothed, err := convolve.Convolve2D(g.meanField(), kernel, convolve.EdgeNearest)
	if err != nil {
		return fmt.Errorf("blur: %w", err)
	}
	data := smoothed.RawMatrix().Data
	for i := range g.nodes {
		g.nodes[i].State = data[i]
	}

	diagf("blurred %dx%d grid: kernel=%d sigma=%g", g.width, g.height, size, sigma)
	return nil
}

// meanField returns the states as a height x width matrix (row y, column x),
// which shares the grid's row-major layout. Caller holds a lock.
func (g *Grid) meanField() *mat.Dense {
	data := make([]float64, len(g.nodes))
	for i, n := range g.nodes {
		data[i] = n.State
	}
	return mat.NewDense(g.height, g.width, data)
}

// States returns a copy of the belief states as a height x width matrix:
// At(y, x) is the state of cell (x, y).
func (g *Grid) States() *mat.Dense {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.meanField()
}
