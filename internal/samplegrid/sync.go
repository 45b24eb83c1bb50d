package samplegrid

import "fmt"

// SyncArea sets the realization bit of every cell in [x, x+w) x [y, y+h) to
// state != 0. The rectangle must lie inside the grid.
func (g *Grid) SyncArea(x, y, w, h int) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || w > g.width-x || h > g.height-y {
		return fmt.Errorf("%w: area (%d, %d) %dx%d outside %dx%d grid",
			ErrOutOfBounds, x, y, w, h, g.width, g.height)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.syncArea(x, y, w, h)
	return nil
}

// SyncRadius synchronises the square neighbourhood around (x, y). The
// region spans radius+1 cells on each side, clipped at the grid edges: the
// lower bound saturates at 0 and the upper bound is exclusive and clamped to
// the grid extent, so the region is [x-r-1, x+r+1) in each axis.
func (g *Grid) SyncRadius(x, y, radius int) error {
	if err := g.checkBounds(x, y); err != nil {
		return err
	}
	if radius < 0 {
		return fmt.Errorf("%w: negative radius %d", ErrMalformedInput, radius)
	}
	r := radius + 1
	xMin := max(x-r, 0)
	yMin := max(y-r, 0)
	xMax := min(x+r, g.width)
	yMax := min(y+r, g.height)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.syncArea(xMin, yMin, xMax-xMin, yMax-yMin)
	return nil
}

// SyncAll synchronises the whole realization from the belief states.
func (g *Grid) SyncAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.syncArea(0, 0, g.width, g.height)
}

// DeriveGroundTruth rewrites the ground truth bitmap from the belief states
// using the same state != 0 threshold as the Sync methods.
func (g *Grid) DeriveGroundTruth() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deriveGroundTruth()
}

// syncArea is the unchecked fast path. Caller holds the write lock.
func (g *Grid) syncArea(x0, y0, w, h int) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			i := g.Idx(x, y)
			g.realization.SetIdx(i, g.nodes[i].State != 0.0)
		}
	}
}

func (g *Grid) deriveGroundTruth() {
	for i := range g.nodes {
		g.groundTruth.SetIdx(i, g.nodes[i].State != 0.0)
	}
}
