package samplegrid

import "errors"

var (
	// ErrMalformedInput is returned when a grid cannot be built from the
	// given states, dimensions or text.
	ErrMalformedInput = errors.New("malformed grid input")
	// ErrOutOfBounds is returned when coordinates or a region fall outside
	// the grid.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
)
