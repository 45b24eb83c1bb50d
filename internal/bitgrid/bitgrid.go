// Package bitgrid is a packed boolean grid: one bit per cell, stored
// row-major (idx = y*width + x) in 64-bit words.
package bitgrid

import (
	"math/bits"

	"github.com/banshee-data/samplegrid/internal/textmap"
)

const wordBits = 64

// Grid is a fixed-size packed bitmap. The zero value is an empty 0x0 grid.
type Grid struct {
	width  int
	height int
	words  []uint64
}

// New returns a width x height grid with every bit clear.
// Negative dimensions are treated as zero.
func New(width, height int) *Grid {
	width = max(width, 0)
	height = max(height, 0)
	n := width * height
	return &Grid{
		width:  width,
		height: height,
		words:  make([]uint64, (n+wordBits-1)/wordBits),
	}
}

// Parse builds a grid from the text map format: open cells are set.
func Parse(text string) (*Grid, error) {
	return textmap.Parse(text, New, func(g *Grid, x, y int) {
		g.Set(x, y, true)
	})
}

// Width returns the x extent.
func (g *Grid) Width() int { return g.width }

// Height returns the y extent.
func (g *Grid) Height() int { return g.height }

// Idx returns the linear index of (x, y).
func (g *Grid) Idx(x, y int) int { return y*g.width + x }

// InBounds reports whether (x, y) is a cell of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Get returns the bit at (x, y). Coordinates must be in bounds.
func (g *Grid) Get(x, y int) bool {
	return g.GetIdx(g.Idx(x, y))
}

// Set writes the bit at (x, y). Coordinates must be in bounds.
func (g *Grid) Set(x, y int, v bool) {
	g.SetIdx(g.Idx(x, y), v)
}

// GetIdx returns the bit at linear index i.
func (g *Grid) GetIdx(i int) bool {
	return g.words[i/wordBits]&(1<<(uint(i)%wordBits)) != 0
}

// SetIdx writes the bit at linear index i.
func (g *Grid) SetIdx(i int, v bool) {
	mask := uint64(1) << (uint(i) % wordBits)
	if v {
		g.words[i/wordBits] |= mask
	} else {
		g.words[i/wordBits] &^= mask
	}
}

// Clear resets every bit.
func (g *Grid) Clear() {
	clear(g.words)
}

// Fill sets every bit.
func (g *Grid) Fill() {
	for i := range g.words {
		g.words[i] = ^uint64(0)
	}
	g.trimTail()
}

// Count returns the number of set bits.
func (g *Grid) Count() int {
	n := 0
	for _, w := range g.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Equal reports whether both grids have the same size and bits.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i, w := range g.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{width: g.width, height: g.height, words: make([]uint64, len(g.words))}
	copy(c.words, g.words)
	return c
}

// String renders the grid in the text map format ('.' set, '@' clear).
func (g *Grid) String() string {
	return textmap.Render(g.width, g.height, g.Get, nil, nil)
}

// trimTail keeps bits past width*height clear so Count and Equal stay exact.
func (g *Grid) trimTail() {
	n := g.width * g.height
	if len(g.words) == 0 || n%wordBits == 0 {
		return
	}
	g.words[len(g.words)-1] &= (uint64(1) << (uint(n) % wordBits)) - 1
}
