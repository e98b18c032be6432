package round

import (
	"math"

	"labyrinth-server/maze"
)

// Escaped reports whether p lies strictly outside the grid's world bounds on either axis.
func Escaped(g *maze.Grid, p maze.Point) bool {
	w, h := g.Bounds()
	return math.Abs(p.X) > w/2 || math.Abs(p.Z) > h/2
}
