package pursuit

import (
	"sync/atomic"

	"labyrinth-server/maze"
)

// PathCache keeps the last path computed for each agent and reuses it while
// neither the agent nor the player has moved to another cell.
// Searches are deterministic, so a reused path equals the one a fresh search would return.
type PathCache struct {
	entries map[string]cacheEntry

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	from, to maze.PointI
	path     []maze.Point
	noPath   bool
}

func NewPathCache() *PathCache {
	return &PathCache{entries: make(map[string]cacheEntry)}
}

// lookup returns the cached path, whether no path exists, and whether the entry was usable.
func (c *PathCache) lookup(id string, from, to maze.PointI) ([]maze.Point, bool, bool) {
	e, ok := c.entries[id]
	if !ok || e.from != from || e.to != to {
		c.misses.Add(1)
		return nil, false, false
	}
	c.hits.Add(1)
	return e.path, e.noPath, true
}

func (c *PathCache) store(id string, from, to maze.PointI, path []maze.Point, noPath bool) {
	c.entries[id] = cacheEntry{from: from, to: to, path: path, noPath: noPath}
}

// Forget drops the entry for an agent that left the active set.
func (c *PathCache) Forget(id string) {
	delete(c.entries, id)
}

// Stats returns the number of reused and recomputed paths.
func (c *PathCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
