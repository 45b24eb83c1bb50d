// Package samplegrid owns the belief grid: a matrix of per-cell Kalman
// estimators plus two packed bitmaps of the same size, the ground truth
// reference and the current realization.
//
// Responsibilities: construction from probability fields or text maps,
// threshold synchronisation of the bitmaps, Gaussian smoothing of the
// belief field, stochastic sampling of realizations and measurement
// feedback from the ground truth.
//
// A set bitmap bit means the cell is open; a clear bit means blocked or not
// yet known to be open. The belief state of a cell is the probability that
// it is open, and any non-zero state marks it as not provably blocked.
//
// Cells are stored row-major: idx = y*width + x. Every exported method that
// takes coordinates checks them and returns ErrOutOfBounds; whole-grid
// sweeps use unchecked index helpers.
//
// No path search, scheduling or persistence lives here.
package samplegrid
