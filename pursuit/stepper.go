package pursuit

import (
	"math"
	"slices"

	"labyrinth-server/config"
	"labyrinth-server/maze"
	"labyrinth-server/pathfinding"
)

// PathFunc finds waypoints from start to goal on a grid.
type PathFunc func(g *maze.Grid, start, goal maze.Point) ([]maze.Point, error)

// Stepper advances agents toward the player over one grid.
type Stepper struct {
	grid          *maze.Grid
	find          PathFunc
	catchDistance float64
	cache         *PathCache
}

type Option func(*Stepper)

// WithPathCache reuses paths while neither endpoint changes cell.
func WithPathCache(c *PathCache) Option {
	return func(s *Stepper) { s.cache = c }
}

// WithPathFunc replaces the A* search, mainly for tests.
func WithPathFunc(f PathFunc) Option {
	return func(s *Stepper) { s.find = f }
}

func WithCatchDistance(d float64) Option {
	return func(s *Stepper) { s.catchDistance = d }
}

func NewStepper(grid *maze.Grid, opts ...Option) *Stepper {
	s := &Stepper{
		grid:          grid,
		find:          pathfinding.FindPath,
		catchDistance: config.CatchDistance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the path cache, or nil when paths are recomputed every tick.
func (s *Stepper) Cache() *PathCache { return s.cache }

// Step moves the agent one tick toward the player and reports a catch.
// With no path the agent holds position; when it shares the player's cell it steers straight at the player.
func (s *Stepper) Step(a Agent, player maze.Point, dt float64) (Agent, bool) {
	path, ok := s.path(a, player)
	a.Version++
	if !ok {
		a.Path = nil
		return a, s.Caught(a, player)
	}

	target := player
	if len(path) > 0 {
		target = path[0]
	}
	a.Path = slices.Clone(path)
	a.Pos, a.Heading = advance(a.Pos, target, a.Speed*dt, a.Heading)
	return a, s.Caught(a, player)
}

// Caught reports whether the agent is strictly within catch distance of the player.
func (s *Stepper) Caught(a Agent, player maze.Point) bool {
	return a.Pos.Dist(player) < s.catchDistance
}

func (s *Stepper) path(a Agent, player maze.Point) ([]maze.Point, bool) {
	if s.cache == nil {
		path, err := s.find(s.grid, a.Pos, player)
		return path, err == nil
	}

	from, to := s.grid.NearestCell(a.Pos), s.grid.NearestCell(player)
	if path, noPath, ok := s.cache.lookup(a.ID, from, to); ok {
		return path, !noPath
	}
	path, err := s.find(s.grid, a.Pos, player)
	s.cache.store(a.ID, from, to, path, err != nil)
	return path, err == nil
}

// advance moves pos toward target by at most step without overshooting.
func advance(pos, target maze.Point, step float64, heading maze.Point) (maze.Point, maze.Point) {
	dx, dz := target.X-pos.X, target.Z-pos.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist == 0 || step <= 0 {
		return pos, heading
	}
	dirX, dirZ := dx/dist, dz/dist
	if dist <= step {
		return target, maze.Point{X: dirX, Z: dirZ}
	}
	return maze.Point{X: pos.X + dirX*step, Z: pos.Z + dirZ*step}, maze.Point{X: dirX, Z: dirZ}
}
