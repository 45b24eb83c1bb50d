// Package textmap reads and writes the plain-text grid format: rows of equal
// length separated by line breaks, '@' for a blocked cell and any other
// character for an open one. Row y of the text holds cells (0..w-1, y).
package textmap

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// BlockedChar marks a blocked cell.
	BlockedChar = '@'
	// OpenChar is written for open cells.
	OpenChar = '.'
	// PathChar is written for cells on a path overlay.
	PathChar = '*'
)

var (
	// ErrEmptyMap is returned when the text has no rows or a zero-width row.
	ErrEmptyMap = errors.New("empty map")
	// ErrRaggedRows is returned when rows differ in length.
	ErrRaggedRows = errors.New("map rows have inconsistent length")
)

// Point is a cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dims returns the width and height of a text map without building anything.
func Dims(text string) (width, height int, err error) {
	rows, err := splitRows(text)
	if err != nil {
		return 0, 0, err
	}
	return len(rows[0]), len(rows), nil
}

// Parse validates text, calls build once with the map dimensions and then
// calls mark once for every open cell.
func Parse[T any](text string, build func(width, height int) T, mark func(g T, x, y int)) (T, error) {
	var zero T
	rows, err := splitRows(text)
	if err != nil {
		return zero, err
	}

	g := build(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			if row[x] != BlockedChar {
				mark(g, x, y)
			}
		}
	}
	return g, nil
}

func splitRows(text string) ([]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, ErrEmptyMap
	}

	rows := strings.Split(text, "\n")
	width := len(rows[0])
	if width == 0 {
		return nil, ErrEmptyMap
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedRows, i, len(row), width)
		}
	}
	return rows, nil
}
