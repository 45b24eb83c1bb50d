package samplegrid

import (
	"fmt"
)

// Observe measures (x, y) against the ground truth (1.0 open, 0.0 blocked)
// and folds the measurement into the cell's estimator with the given
// measurement noise. It returns the updated state. Errors from the
// estimator wrap kalman.ErrDegenerateUpdate and leave the cell unchanged.
func (g *Grid) Observe(x, y int, measurementNoise float64) (float64, error) {
	if err := g.checkBounds(x, y); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.observe(x, y, measurementNoise)
}

// ObserveAll observes every cell in row-major order. It stops at the first
// cell whose update is degenerate; cells before it keep their update.
func (g *Grid) ObserveAll(measurementNoise float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if _, err := g.observe(x, y, measurementNoise); err != nil {
				return err
			}
		}
	}
	tracef("observed %dx%d grid: noise=%g", g.width, g.height, measurementNoise)
	return nil
}

// observe is the unchecked fast path. Caller holds the write lock.
func (g *Grid) observe(x, y int, measurementNoise float64) (float64, error) {
	i := g.Idx(x, y)
	measurement := 0.0
	if g.groundTruth.GetIdx(i) {
		measurement = 1.0
	}
	state, err := g.nodes[i].Update(measurement, measurementNoise)
	if err != nil {
		opsf("observe (%d, %d) failed: %v", x, y, err)
		return state, fmt.Errorf("observe (%d, %d): %w", x, y, err)
	}
	return state, nil
}
