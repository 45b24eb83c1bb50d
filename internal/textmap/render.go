package textmap

import (
	"strings"
)

// heatRamp maps normalised intensity to a digit, low to high.
const heatRamp = "0123456789"

// Render writes a width x height grid using open as the cell predicate.
// Cells listed in heat are drawn as a digit scaled to the largest value in
// the map; cells on path are drawn as PathChar and take precedence.
// Coordinates outside the grid are ignored.
func Render(width, height int, open func(x, y int) bool, path []Point, heat map[Point]float64) string {
	overlay := make(map[Point]byte, len(path)+len(heat))

	maxHeat := 0.0
	for _, v := range heat {
		if v > maxHeat {
			maxHeat = v
		}
	}
	for p, v := range heat {
		overlay[p] = heatChar(v, maxHeat)
	}
	for _, p := range path {
		overlay[p] = PathChar
	}

	var sb strings.Builder
	sb.Grow((width + 1) * height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if c, ok := overlay[Point{X: x, Y: y}]; ok {
				sb.WriteByte(c)
				continue
			}
			if open(x, y) {
				sb.WriteByte(OpenChar)
			} else {
				sb.WriteByte(BlockedChar)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func heatChar(v, maxHeat float64) byte {
	if maxHeat <= 0 || v <= 0 {
		return heatRamp[0]
	}
	i := int(v / maxHeat * float64(len(heatRamp)-1))
	if i >= len(heatRamp) {
		i = len(heatRamp) - 1
	}
	return heatRamp[i]
}
