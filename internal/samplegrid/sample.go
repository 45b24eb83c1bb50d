package samplegrid

// Sample draws a new realization bit for (x, y): the cell is open when its
// state is non-zero and a uniform draw u in [0, 1) is below the state. A
// state of 0 is never open and a state of 1 is always open.
func (g *Grid) Sample(x, y int) (bool, error) {
	if err := g.checkBounds(x, y); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sample(g.Idx(x, y)), nil
}

// SampleAll redraws every realization bit independently and returns the
// number of open cells in the new realization.
func (g *Grid) SampleAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	open := 0
	for i := range g.nodes {
		if g.sample(i) {
			open++
		}
	}
	tracef("sampled %dx%d grid: %d open", g.width, g.height, open)
	return open
}

// sample is the unchecked fast path. Caller holds the write lock.
func (g *Grid) sample(i int) bool {
	state := g.nodes[i].State
	u := g.rng.Float64()
	v := state != 0.0 && u < state
	g.realization.SetIdx(i, v)
	return v
}
