package samplegrid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedRand replays vals in order, wrapping around.
type fixedRand struct {
	vals []float64
	i    int
}

func (r *fixedRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// statesByColumn returns states[x][y], the layout used by New.
func statesByColumn(t *testing.T, g *Grid) [][]float64 {
	t.Helper()
	out := make([][]float64, g.Width())
	for x := range out {
		out[x] = make([]float64, g.Height())
		for y := range out[x] {
			s, err := g.State(x, y)
			require.NoError(t, err)
			out[x][y] = s
		}
	}
	return out
}

func mustFromString(t *testing.T, text string, opts ...Option) *Grid {
	t.Helper()
	g, err := NewFromString(text, opts...)
	require.NoError(t, err)
	return g
}
