// Package kalman provides the per-cell scalar estimator used by the belief
// grid. The hidden state is assumed static between measurements, so there is
// no predict step: each measurement is folded in with the steady-state 1D
// Kalman update (see kalmanfilter.net, "Kalman filter in one dimension").
package kalman

import (
	"errors"
	"fmt"
	"math"
)

// DefaultCovariance is the initial estimate uncertainty of a fresh node.
const DefaultCovariance = 1.0

// ErrDegenerateUpdate is returned when an update cannot produce a finite
// estimate, e.g. zero covariance combined with zero measurement noise.
var ErrDegenerateUpdate = errors.New("degenerate kalman update")

// Node is a one-dimensional estimator holding a belief (state, covariance).
type Node struct {
	State      float64
	Covariance float64
}

// NewNode returns a node at the given state with DefaultCovariance.
func NewNode(state float64) Node {
	return Node{State: state, Covariance: DefaultCovariance}
}

// Gain returns the Kalman gain the node would apply for a measurement with
// the given noise covariance.
func (n *Node) Gain(measurementNoise float64) (float64, error) {
	denom := n.Covariance + measurementNoise
	if denom == 0 || !isFinite(denom) {
		return 0, fmt.Errorf("%w: covariance=%g noise=%g", ErrDegenerateUpdate, n.Covariance, measurementNoise)
	}
	return n.Covariance / denom, nil
}

// Update folds one measurement into the belief and returns the new state.
// On ErrDegenerateUpdate the node is left unchanged.
func (n *Node) Update(measurement, measurementNoise float64) (float64, error) {
	gain, err := n.Gain(measurementNoise)
	if err != nil {
		return n.State, err
	}

	state := n.State + gain*(measurement-n.State)
	covariance := (1 - gain) * n.Covariance
	if !isFinite(state) || !isFinite(covariance) {
		return n.State, fmt.Errorf("%w: non-finite result for measurement=%g", ErrDegenerateUpdate, measurement)
	}

	n.State = state
	n.Covariance = covariance
	return n.State, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
