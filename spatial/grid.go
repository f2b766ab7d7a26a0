// Package spatial provides a uniform hash grid for neighbor lookups on a
// toroidal world.
package spatial

import (
	"math"

	"github.com/pthm-cable/broth/geo"
)

// Grid buckets items by cell for O(1) neighborhood queries. It is generic
// over the item handle type so creatures and plants can share one
// implementation.
type Grid[T comparable] struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]T
}

// NewGrid creates a grid covering a width x height torus.
func NewGrid[T comparable](width, height, cellSize float64) *Grid[T] {
	cols := int(width / cellSize)
	if cols < 1 {
		cols = 1
	}
	rows := int(height / cellSize)
	if rows < 1 {
		rows = 1
	}

	cells := make([][]T, cols*rows)
	for i := range cells {
		cells[i] = make([]T, 0, 8)
	}

	return &Grid[T]{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Clear removes all items from the grid.
func (g *Grid[T]) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an item at the given position.
func (g *Grid[T]) Insert(item T, pos geo.Vec2) {
	g.cells[g.cellIndex(pos)] = append(g.cells[g.cellIndex(pos)], item)
}

// Rebuild clears the grid and reinserts every item at its current position.
// After Rebuild each item appears in exactly one cell.
func (g *Grid[T]) Rebuild(items map[T]geo.Vec2) {
	g.Clear()
	for item, pos := range items {
		g.Insert(item, pos)
	}
}

// QueryInto appends every item in the cell range covering [p-r, p+r] to dst
// and returns the updated slice. The result is a conservative superset of
// the true toroidal neighborhood; callers re-filter by distance. Cell index
// ranges wrap toroidally when the window crosses a world edge.
func (g *Grid[T]) QueryInto(dst []T, p geo.Vec2, radius float64) []T {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol := g.wrapCol(int(math.Floor(p.X / g.cellSize)))
	centerRow := g.wrapRow(int(math.Floor(p.Y / g.cellSize)))

	// When the window spans the whole axis, visit each cell once.
	colSpan := cellRadius
	if 2*colSpan+1 > g.cols {
		colSpan = g.cols / 2
	}
	rowSpan := cellRadius
	if 2*rowSpan+1 > g.rows {
		rowSpan = g.rows / 2
	}

	seen := make(map[int]struct{}, (2*colSpan+1)*(2*rowSpan+1))
	for dc := -colSpan; dc <= colSpan; dc++ {
		for dr := -rowSpan; dr <= rowSpan; dr++ {
			col := g.wrapCol(centerCol + dc)
			row := g.wrapRow(centerRow + dr)
			idx := row*g.cols + col
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			dst = append(dst, g.cells[idx]...)
		}
	}

	return dst
}

// Query returns every item in the cell range covering [p-r, p+r].
func (g *Grid[T]) Query(p geo.Vec2, radius float64) []T {
	return g.QueryInto(nil, p, radius)
}

// Len returns the total number of items currently in the grid.
func (g *Grid[T]) Len() int {
	n := 0
	for i := range g.cells {
		n += len(g.cells[i])
	}
	return n
}

func (g *Grid[T]) cellIndex(pos geo.Vec2) int {
	col := g.wrapCol(int(math.Floor(pos.X / g.cellSize)))
	row := g.wrapRow(int(math.Floor(pos.Y / g.cellSize)))
	return row*g.cols + col
}

func (g *Grid[T]) wrapCol(c int) int {
	c %= g.cols
	if c < 0 {
		c += g.cols
	}
	return c
}

func (g *Grid[T]) wrapRow(r int) int {
	r %= g.rows
	if r < 0 {
		r += g.rows
	}
	return r
}
