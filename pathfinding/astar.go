package pathfinding

import (
	"container/heap"
	"errors"
	"log"

	"github.com/zyedidia/generic/mapset"

	"labyrinth-server/maze"
)

// ErrNoPath is returned when the goal cannot be reached from the start.
var ErrNoPath = errors.New("no path found")

// AStarNode represents a cell in the A* search space.
type AStarNode struct {
	X, Z   int
	G      int // cost from start
	F      int // G + heuristic
	Parent *AStarNode
	Index  int // heap index
}

// PriorityQueue implements heap.Interface for the open set.
// Nodes with equal F are ordered by X, then Z, so identical inputs always yield identical paths.
type PriorityQueue []*AStarNode

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.F != b.F {
		return a.F < b.F
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x any) {
	node := x.(*AStarNode)
	node.Index = len(*pq)
	*pq = append(*pq, node)
}

func (pq *PriorityQueue) Pop() any {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.Index = -1
	*pq = old[:n-1]
	return node
}

// heuristic is the Manhattan distance, admissible for 4-connected unit-cost movement.
func heuristic(x, z int, goal maze.PointI) int {
	return abs(x-goal.X) + abs(z-goal.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var neighborDirs = []maze.PointI{
	{X: 1, Z: 0},
	{X: -1, Z: 0},
	{X: 0, Z: 1},
	{X: 0, Z: -1},
}

// FindCellPath returns the cells from start (exclusive) to goal (inclusive).
// An empty, non-nil path means start and goal are the same cell.
func FindCellPath(g *maze.Grid, start, goal maze.PointI) ([]maze.PointI, error) {
	if g.IsWallCell(start.X, start.Z) || g.IsWallCell(goal.X, goal.Z) {
		return nil, ErrNoPath
	}
	if start == goal {
		return []maze.PointI{}, nil
	}

	openSet := make(PriorityQueue, 0, 16)
	heap.Push(&openSet, &AStarNode{X: start.X, Z: start.Z, F: heuristic(start.X, start.Z, goal)})

	gScore := map[maze.PointI]int{start: 0}
	closed := mapset.New[maze.PointI]()

	// Every cell can be pushed at most once per incoming edge.
	maxIterations := g.Width()*g.Height()*len(neighborDirs) + 1
	iterations := 0

	for openSet.Len() > 0 {
		iterations++
		if iterations > maxIterations {
			log.Printf("WARNING: Pathfinding aborted after %d iterations from %v to %v", iterations, start, goal)
			return nil, ErrNoPath
		}

		current := heap.Pop(&openSet).(*AStarNode)
		key := maze.PointI{X: current.X, Z: current.Z}
		if closed.Has(key) {
			continue
		}
		closed.Put(key)

		if key == goal {
			return reconstruct(current), nil
		}

		for _, dir := range neighborDirs {
			nx, nz := current.X+dir.X, current.Z+dir.Z
			next := maze.PointI{X: nx, Z: nz}
			if g.IsWallCell(nx, nz) || closed.Has(next) {
				continue
			}
			tentative := current.G + 1
			if known, ok := gScore[next]; ok && tentative >= known {
				continue
			}
			gScore[next] = tentative
			heap.Push(&openSet, &AStarNode{
				X:      nx,
				Z:      nz,
				G:      tentative,
				F:      tentative + heuristic(nx, nz, goal),
				Parent: current,
			})
		}
	}

	return nil, ErrNoPath
}

func reconstruct(end *AStarNode) []maze.PointI {
	path := make([]maze.PointI, end.G)
	for n := end; n.Parent != nil; n = n.Parent {
		path[n.G-1] = maze.PointI{X: n.X, Z: n.Z}
	}
	return path
}

// FindPath snaps both world positions to their nearest cells and returns the waypoints
// (cell centers) leading from start to goal, excluding the start cell.
func FindPath(g *maze.Grid, start, goal maze.Point) ([]maze.Point, error) {
	cells, err := FindCellPath(g, g.NearestCell(start), g.NearestCell(goal))
	if err != nil {
		return nil, err
	}
	return Waypoints(g, cells), nil
}

// Waypoints converts a cell path to world-space cell centers.
func Waypoints(g *maze.Grid, cells []maze.PointI) []maze.Point {
	points := make([]maze.Point, len(cells))
	for i, c := range cells {
		points[i] = g.CellToWorld(c.X, c.Z)
	}
	return points
}
