// Package spatial provides a uniform grid for neighbour queries on the
// arena floor (the x/z plane).
//
// The grid stores integer indices, not pointers, so a caller rebuilds it
// from its own entity slice each tick and maps indices back itself.
package spatial

import (
	"math"
)

// Bounds is an axis-aligned rectangle on the x/z plane.
type Bounds struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// Width along x
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Depth along z
func (b Bounds) Depth() float64 { return b.MaxZ - b.MinZ }

// Grid buckets entity indices into fixed-size cells.
//
// Cell size should be close to the most common query radius. Cells are
// stored in row-major order (cells[row*cols+col]) with rows along z.
type Grid struct {
	bounds      Bounds
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
}

// NewGrid creates a grid covering bounds. Positions outside are clamped
// into the border cells.
func NewGrid(bounds Bounds, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(bounds.Width() / cellSize))
	rows := int(math.Ceil(bounds.Depth() / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		bounds:      bounds,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 32),
	}
}

// Clear empties every cell but keeps capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *Grid) col(x float64) int {
	c := int((x - g.bounds.MinX) * g.invCellSize)
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) row(z float64) int {
	r := int((z - g.bounds.MinZ) * g.invCellSize)
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Insert adds entity id at (x, z).
func (g *Grid) Insert(id uint32, x, z float64) {
	idx := g.row(z)*g.cols + g.col(x)
	g.cells[idx] = append(g.cells[idx], id)
}

// QueryRadius returns candidate ids whose cell overlaps the square around
// (x, z). Callers must do the exact distance check.
//
// The returned slice is reused by the next call.
func (g *Grid) QueryRadius(x, z, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.col(x-radius), g.col(x+radius)
	minRow, maxRow := g.row(z-radius), g.row(z+radius)

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g.scratch = append(g.scratch, g.cells[r*g.cols+c]...)
		}
	}
	return g.scratch
}

// Stats returns grid statistics for debugging.
func (g *Grid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}
	return GridStats{
		TotalCells:    len(g.cells),
		NonEmptyCells: nonEmpty,
		TotalEntities: total,
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells    int
	NonEmptyCells int
	TotalEntities int
	MaxInCell     int
}
