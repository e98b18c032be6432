package physics

import (
	"math"

	"github.com/jakecoffman/cp"

	"labyrinth-server/config"
	"labyrinth-server/maze"
)

const maxSubstep = 1.0 / 120.0

// World integrates the player body against the walls of one maze.
// The maze's world Z axis maps to the space's Y axis.
type World struct {
	space  *cp.Space
	body   *cp.Body
	speed  float64
	intent cp.Vector
}

// NewWorld builds a zero-gravity space with a static box per wall cell and the player at start.
func NewWorld(g *maze.Grid, start maze.Point) *World {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{})

	half := g.CellSize() / 2
	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			if !g.IsWallCell(x, z) {
				continue
			}
			c := g.CellToWorld(x, z)
			bb := cp.BB{L: c.X - half, B: c.Z - half, R: c.X + half, T: c.Z + half}
			shape := cp.NewBox2(space.StaticBody, bb, 0)
			shape.SetFriction(0)
			shape.SetElasticity(0)
			space.AddShape(shape)
		}
	}

	mass := 1.0
	body := cp.NewBody(mass, cp.MomentForCircle(mass, 0, config.PLAYER_RADIUS, cp.Vector{}))
	body.SetPosition(cp.Vector{X: start.X, Y: start.Z})
	space.AddBody(body)

	shape := cp.NewCircle(body, config.PLAYER_RADIUS, cp.Vector{})
	shape.SetFriction(0)
	shape.SetElasticity(0)
	space.AddShape(shape)

	return &World{space: space, body: body, speed: config.DefaultPlayerSpeed}
}

// SetIntent sets the movement direction. Any non-zero intent moves at full player speed.
func (w *World) SetIntent(dx, dz float64) {
	n := math.Hypot(dx, dz)
	if n == 0 {
		w.intent = cp.Vector{}
		return
	}
	w.intent = cp.Vector{X: dx / n * w.speed, Y: dz / n * w.speed}
}

// Step advances the space by dt seconds in small substeps.
func (w *World) Step(dt float64) {
	for dt > 0 {
		step := math.Min(dt, maxSubstep)
		w.body.SetVelocityVector(w.intent)
		w.body.SetAngularVelocity(0)
		w.space.Step(step)
		dt -= step
	}
}

func (w *World) Position() maze.Point {
	p := w.body.Position()
	return maze.Point{X: p.X, Z: p.Y}
}

// Reset places the player at p and clears any movement.
func (w *World) Reset(p maze.Point) {
	w.intent = cp.Vector{}
	w.body.SetVelocityVector(cp.Vector{})
	w.body.SetPosition(cp.Vector{X: p.X, Y: p.Z})
}
