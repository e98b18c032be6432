package round

import (
	"errors"
	"math/rand"

	"github.com/zyedidia/generic/mapset"

	"labyrinth-server/config"
	"labyrinth-server/maze"
)

// ErrNoOpenCell means a maze has nowhere to place an agent. This is a configuration error.
var ErrNoOpenCell = errors.New("maze has no open cell for spawning")

// reachableCells flood-fills the open cells connected to start.
func reachableCells(g *maze.Grid, start maze.PointI) mapset.Set[maze.PointI] {
	reachable := mapset.New[maze.PointI]()
	if g.IsWallCell(start.X, start.Z) {
		return reachable
	}
	queue := []maze.PointI{start}
	reachable.Put(start)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range []maze.PointI{
			{X: cur.X + 1, Z: cur.Z},
			{X: cur.X - 1, Z: cur.Z},
			{X: cur.X, Z: cur.Z + 1},
			{X: cur.X, Z: cur.Z - 1},
		} {
			if g.IsWallCell(n.X, n.Z) || reachable.Has(n) {
				continue
			}
			reachable.Put(n)
			queue = append(queue, n)
		}
	}
	return reachable
}

// spawner places agents on open cells away from the player start. Cells the player can
// reach are preferred so no agent is stranded on an island of the maze.
type spawner struct {
	grid      *maze.Grid
	avoid     maze.Point
	minDist   float64
	attempts  int
	rng       *rand.Rand
	reachable mapset.Set[maze.PointI]
}

func newSpawner(g *maze.Grid, avoid maze.Point, rng *rand.Rand) *spawner {
	return &spawner{
		grid:      g,
		avoid:     avoid,
		minDist:   config.SpawnMinDistance,
		attempts:  config.SpawnAttempts,
		rng:       rng,
		reachable: reachableCells(g, g.WorldToCell(avoid.X, avoid.Z)),
	}
}

// next draws random cells first and falls back to a full scan, so it always terminates.
func (s *spawner) next() (maze.Point, error) {
	g := s.grid
	for i := 0; i < s.attempts; i++ {
		c := maze.PointI{X: s.rng.Intn(g.Width()), Z: s.rng.Intn(g.Height())}
		if !s.reachable.Has(c) {
			continue
		}
		if p := g.CellToWorld(c.X, c.Z); p.Dist(s.avoid) >= s.minDist {
			return p, nil
		}
	}

	open := g.OpenCells()
	if len(open) == 0 {
		return maze.Point{}, ErrNoOpenCell
	}
	var farReachable, reachable, far []maze.Point
	for _, c := range open {
		p := g.CellToWorld(c.X, c.Z)
		isFar := p.Dist(s.avoid) >= s.minDist
		switch {
		case isFar && s.reachable.Has(c):
			farReachable = append(farReachable, p)
		case s.reachable.Has(c):
			reachable = append(reachable, p)
		case isFar:
			far = append(far, p)
		}
	}
	for _, candidates := range [][]maze.Point{farReachable, far, reachable} {
		if len(candidates) > 0 {
			return candidates[s.rng.Intn(len(candidates))], nil
		}
	}
	c := open[s.rng.Intn(len(open))]
	return g.CellToWorld(c.X, c.Z), nil
}

// spawnPositions returns one spawn position per agent.
func spawnPositions(g *maze.Grid, player maze.Point, count int, rng *rand.Rand) ([]maze.Point, error) {
	s := newSpawner(g, player, rng)
	positions := make([]maze.Point, 0, count)
	for i := 0; i < count; i++ {
		p, err := s.next()
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, nil
}
