package maze

import (
	"errors"
	"fmt"
	"math"
)

// Cell is the value of one maze cell.
type Cell uint8

const (
	Open Cell = 0
	Wall Cell = 1
)

// ErrInvalidGrid is returned for malformed maze data.
var ErrInvalidGrid = errors.New("invalid maze grid")

// Point is a position on the world ground plane.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// PointI identifies a grid cell by column (X) and row (Z).
type PointI struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Z-p.Z)
}

// Grid is an immutable rectangular maze centered on the world origin.
type Grid struct {
	name     string
	cells    [][]Cell
	width    int // columns
	height   int // rows
	cellSize float64
}

// NewGrid validates rows (0 = open, 1 = wall) and returns a grid holding its own copy of them.
func NewGrid(name string, rows [][]int, cellSize float64) (*Grid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size %v must be positive", ErrInvalidGrid, cellSize)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: maze %q has no cells", ErrInvalidGrid, name)
	}

	width := len(rows[0])
	cells := make([][]Cell, len(rows))
	for z, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: maze %q row %d has %d cells, expected %d", ErrInvalidGrid, name, z, len(row), width)
		}
		cells[z] = make([]Cell, width)
		for x, v := range row {
			switch Cell(v) {
			case Open, Wall:
				cells[z][x] = Cell(v)
			default:
				return nil, fmt.Errorf("%w: maze %q cell (%d,%d) has value %d", ErrInvalidGrid, name, x, z, v)
			}
		}
	}

	return &Grid{
		name:     name,
		cells:    cells,
		width:    width,
		height:   len(rows),
		cellSize: cellSize,
	}, nil
}

func (g *Grid) Name() string      { return g.name }
func (g *Grid) Width() int        { return g.width }
func (g *Grid) Height() int       { return g.height }
func (g *Grid) CellSize() float64 { return g.cellSize }

// Bounds returns the world-space extent of the grid along X and Z.
func (g *Grid) Bounds() (float64, float64) {
	return float64(g.width) * g.cellSize, float64(g.height) * g.cellSize
}

// WorldToCell converts world coordinates to the cell that contains them.
func (g *Grid) WorldToCell(x, z float64) PointI {
	w, h := g.Bounds()
	return PointI{
		X: int(math.Floor((x + w/2) / g.cellSize)),
		Z: int(math.Floor((z + h/2) / g.cellSize)),
	}
}

// NearestCell returns the cell whose center is nearest to p.
func (g *Grid) NearestCell(p Point) PointI {
	w, h := g.Bounds()
	return PointI{
		X: int(math.Round((p.X+w/2)/g.cellSize - 0.5)),
		Z: int(math.Round((p.Z+h/2)/g.cellSize - 0.5)),
	}
}

// CellToWorld converts cell indices to the world position of the cell center.
func (g *Grid) CellToWorld(col, row int) Point {
	w, h := g.Bounds()
	return Point{
		X: (float64(col)+0.5)*g.cellSize - w/2,
		Z: (float64(row)+0.5)*g.cellSize - h/2,
	}
}

// InBounds reports whether the cell lies inside the grid.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.width && row >= 0 && row < g.height
}

// IsWallCell reports whether a cell blocks movement. Cells outside the grid are walls.
func (g *Grid) IsWallCell(col, row int) bool {
	if !g.InBounds(col, row) {
		return true
	}
	return g.cells[row][col] == Wall
}

// IsWall reports whether the world position falls in a wall or outside the grid.
func (g *Grid) IsWall(x, z float64) bool {
	c := g.WorldToCell(x, z)
	return g.IsWallCell(c.X, c.Z)
}

// OpenCells lists every open cell in row-major order.
func (g *Grid) OpenCells() []PointI {
	var open []PointI
	for z := 0; z < g.height; z++ {
		for x := 0; x < g.width; x++ {
			if g.cells[z][x] == Open {
				open = append(open, PointI{X: x, Z: z})
			}
		}
	}
	return open
}

// Rows returns a copy of the grid as 0/1 rows.
func (g *Grid) Rows() [][]int {
	rows := make([][]int, g.height)
	for z := range g.cells {
		rows[z] = make([]int, g.width)
		for x, c := range g.cells[z] {
			rows[z][x] = int(c)
		}
	}
	return rows
}
