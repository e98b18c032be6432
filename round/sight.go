package round

import (
	"math"

	"labyrinth-server/maze"
	"labyrinth-server/pursuit"
)

// LineOfSight reports whether the segment from a to b crosses no wall cell.
// The segment is sampled at a quarter of the cell size.
func LineOfSight(g *maze.Grid, a, b maze.Point) bool {
	dist := a.Dist(b)
	steps := int(math.Ceil(dist / (g.CellSize() / 4)))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		if g.IsWall(a.X+(b.X-a.X)*t, a.Z+(b.Z-a.Z)*t) {
			return false
		}
	}
	return true
}

// NearestVisibleAgent returns the closest agent within maxRange that the player can see.
func (c *Controller) NearestVisibleAgent(maxRange float64) (pursuit.Agent, bool) {
	var best pursuit.Agent
	bestDist := math.Inf(1)
	for _, a := range c.agents {
		d := a.Pos.Dist(c.player)
		if d > maxRange || d >= bestDist {
			continue
		}
		if !LineOfSight(c.grid, c.player, a.Pos) {
			continue
		}
		best, bestDist = a, d
	}
	return best, !math.IsInf(bestDist, 1)
}
