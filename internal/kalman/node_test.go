package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	n := NewNode(0.25)
	assert.Equal(t, 0.25, n.State)
	assert.Equal(t, DefaultCovariance, n.Covariance)
}

// Values from the building-height example on kalmanfilter.net.
func TestUpdate_Fixture(t *testing.T) {
	n := Node{State: 60.0, Covariance: 225.0}

	state, err := n.Update(49.03, 25.0)
	require.NoError(t, err)
	assert.InDelta(t, 50.127, state, 1e-4)
	assert.InDelta(t, 22.5, n.Covariance, 1e-4)

	state, err = n.Update(48.44, 25.0)
	require.NoError(t, err)
	assert.InDelta(t, 49.327892, state, 1e-4)
	assert.InDelta(t, 11.842108, n.Covariance, 1e-4)
}

func TestUpdate_Converges(t *testing.T) {
	for _, target := range []float64{0.0, 1.0} {
		n := NewNode(0.5)
		prevCov := n.Covariance
		prevErr := math.Abs(n.State - target)
		for i := 0; i < 50; i++ {
			_, err := n.Update(target, 0.1)
			require.NoError(t, err)
			assert.Less(t, n.Covariance, prevCov, "covariance must strictly decrease")
			e := math.Abs(n.State - target)
			assert.LessOrEqual(t, e, prevErr)
			prevCov, prevErr = n.Covariance, e
		}
		assert.InDelta(t, target, n.State, 1e-2)
		assert.Less(t, n.Covariance, 0.01)
	}
}

func TestUpdate_PerfectMeasurement(t *testing.T) {
	n := NewNode(0.3)
	state, err := n.Update(1.0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, state, 1e-12)
	assert.Equal(t, 0.0, n.Covariance)
}

func TestUpdate_Degenerate(t *testing.T) {
	n := Node{State: 0.4, Covariance: 0}

	state, err := n.Update(1.0, 0)
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
	assert.Equal(t, 0.4, state)
	assert.Equal(t, Node{State: 0.4, Covariance: 0}, n, "node must be unchanged")

	_, err = n.Gain(0)
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
}

func TestUpdate_NonFinite(t *testing.T) {
	n := NewNode(0.5)
	_, err := n.Update(math.Inf(1), 1.0)
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
	assert.Equal(t, 0.5, n.State)

	_, err = n.Update(1.0, math.NaN())
	assert.ErrorIs(t, err, ErrDegenerateUpdate)
}

func TestGain(t *testing.T) {
	n := Node{State: 0, Covariance: 3}
	g, err := n.Gain(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, g, 1e-12)
}
