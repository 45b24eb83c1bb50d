// Package convolve holds the numeric helpers used to smooth belief fields:
// Gaussian kernel generation and 2D convolution with an edge policy.
package convolve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidKernel is returned for even or non-positive kernel sizes,
	// non-positive sigma, or a kernel matrix that is not square and odd.
	ErrInvalidKernel = errors.New("invalid kernel")
	// ErrEmptyMatrix is returned when the source matrix has no cells.
	ErrEmptyMatrix = errors.New("empty matrix")
)

// Edge selects how samples outside the source matrix are resolved.
type Edge int

const (
	// EdgeNearest clamps to the nearest edge cell.
	EdgeNearest Edge = iota
	// EdgeZero treats outside cells as 0.
	EdgeZero
	// EdgeWrap wraps around to the opposite edge.
	EdgeWrap
)

func (e Edge) String() string {
	switch e {
	case EdgeNearest:
		return "nearest"
	case EdgeZero:
		return "zero"
	case EdgeWrap:
		return "wrap"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// GaussianKernel returns a size x size kernel sampled from a 2D Gaussian
// centred on the middle cell and normalised to sum to 1.
func GaussianKernel(size int, sigma float64) (*mat.Dense, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("%w: size must be odd and positive, got %d", ErrInvalidKernel, size)
	}
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("%w: sigma must be positive and finite, got %g", ErrInvalidKernel, sigma)
	}

	centre := float64(size / 2)
	twoSigmaSq := 2 * sigma * sigma
	data := make([]float64, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			di := float64(i) - centre
			dj := float64(j) - centre
			data[i*size+j] = math.Exp(-(di*di + dj*dj) / twoSigmaSq)
		}
	}
	floats.Scale(1/floats.Sum(data), data)
	return mat.NewDense(size, size, data), nil
}

// Convolve2D convolves src with a square, odd-sized kernel anchored on its
// centre cell. The result has the dimensions of src and is fully computed
// before it is returned; src is never modified.
func Convolve2D(src, kernel mat.Matrix, edge Edge) (*mat.Dense, error) {
	rows, cols := src.Dims()
	if rows == 0 || cols == 0 {
		return nil, ErrEmptyMatrix
	}
	kr, kc := kernel.Dims()
	if kr != kc || kr%2 == 0 {
		return nil, fmt.Errorf("%w: kernel must be square and odd, got %dx%d", ErrInvalidKernel, kr, kc)
	}
	half := kr / 2

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			for i := 0; i < kr; i++ {
				sr, ok := resolve(r+i-half, rows, edge)
				if !ok {
					continue
				}
				for j := 0; j < kc; j++ {
					sc, ok := resolve(c+j-half, cols, edge)
					if !ok {
						continue
					}
					// Flipped kernel index: true convolution, not correlation.
					sum += kernel.At(kr-1-i, kc-1-j) * src.At(sr, sc)
				}
			}
			out.Set(r, c, sum)
		}
	}
	return out, nil
}

// resolve maps a possibly out-of-range index into [0, n). ok is false when
// the sample contributes nothing (EdgeZero outside the matrix).
func resolve(i, n int, edge Edge) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch edge {
	case EdgeZero:
		return 0, false
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	default:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	}
}
