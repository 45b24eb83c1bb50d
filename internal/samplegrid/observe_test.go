package samplegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/samplegrid/internal/bitgrid"
	"github.com/banshee-data/samplegrid/internal/kalman"
)

func TestObserve_MovesTowardTruth(t *testing.T) {
	truth, err := bitgrid.Parse(".@\n")
	require.NoError(t, err)
	g, err := New([][]float64{{0.5}, {0.5}}, truth)
	require.NoError(t, err)

	open, err := g.Observe(0, 0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5+(2.0/3.0)*0.5, open, 1e-12)

	blocked, err := g.Observe(1, 0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5-(2.0/3.0)*0.5, blocked, 1e-12)

	cov, err := g.Covariance(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, cov, 1e-12)
}

func TestObserve_CovarianceIsMonotone(t *testing.T) {
	g := mustFromString(t, "@.\n")
	require.NoError(t, g.Blur(3, 1.0))

	prevCov := kalman.DefaultCovariance
	prevErr := 1.0
	for range 20 {
		state, err := g.Observe(1, 0, 0.5)
		require.NoError(t, err)

		cov, err := g.Covariance(1, 0)
		require.NoError(t, err)
		assert.Less(t, cov, prevCov)
		assert.LessOrEqual(t, 1-state, prevErr)
		prevCov, prevErr = cov, 1-state
	}
	s, err := g.State(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 0.05)
}

func TestObserve_DoesNotTouchBitmaps(t *testing.T) {
	g := mustFromString(t, "@.\n..\n")
	_, err := g.Observe(1, 1, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 0, g.realization.Count())
	assert.Equal(t, "@.\n..\n", g.GroundTruthString())
}

func TestObserve_Degenerate(t *testing.T) {
	g := mustFromString(t, "..\n")

	// A perfect measurement collapses the covariance to zero.
	_, err := g.Observe(0, 0, 0)
	require.NoError(t, err)
	cov, err := g.Covariance(0, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, cov)

	state, err := g.Observe(0, 0, 0)
	assert.ErrorIs(t, err, kalman.ErrDegenerateUpdate)
	assert.Equal(t, 1.0, state)

	s, err := g.State(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)
	cov, err = g.Covariance(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cov)
}

func TestObserveAll(t *testing.T) {
	g := mustFromString(t, "@.\n.@\n")
	require.NoError(t, g.Blur(3, 1.0))

	for range 30 {
		require.NoError(t, g.ObserveAll(0.5))
	}
	snap := g.Snapshot()
	for i, s := range snap.States {
		want := 0.0
		if snap.GroundTruth[i] {
			want = 1.0
		}
		assert.InDelta(t, want, s, 0.05, "cell %d", i)
	}
}

func TestObserveAll_StopsAtDegenerateCell(t *testing.T) {
	g := mustFromString(t, "...\n")

	// Collapse only the middle cell.
	_, err := g.Observe(1, 0, 0)
	require.NoError(t, err)

	err = g.ObserveAll(0)
	assert.ErrorIs(t, err, kalman.ErrDegenerateUpdate)
	assert.Contains(t, err.Error(), "observe (1, 0)")

	// (0, 0) was updated before the failure, (2, 0) was not reached.
	cov, err := g.Covariance(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cov)
	cov, err = g.Covariance(2, 0)
	require.NoError(t, err)
	assert.Equal(t, kalman.DefaultCovariance, cov)
}
