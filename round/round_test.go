package round

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"labyrinth-server/maze"
	"labyrinth-server/pursuit"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("agent-%d", n)
	}
}

func newController(t *testing.T, reg *maze.Registry, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1))), WithIDFunc(sequentialIDs())}, opts...)
	c, err := NewController(reg, opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func expectEvents(t *testing.T, events []Event, want ...EventKind) {
	t.Helper()
	got := eventKinds(events)
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected events %v, got %v", want, got)
		}
	}
}

func expectKinds(t *testing.T, agents []pursuit.Agent, want ...pursuit.Kind) {
	t.Helper()
	if len(agents) != len(want) {
		t.Fatalf("Expected %d agents, got %d", len(want), len(agents))
	}
	for i, a := range agents {
		if a.Kind != want[i] {
			t.Errorf("agent %d is %s, want %s", i, a.Kind, want[i])
		}
	}
}

func escape(t *testing.T, c *Controller) []Event {
	t.Helper()
	c.SetPlayer(maze.Point{X: 1000, Z: 0})
	events, err := c.Tick(0.05)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return events
}

func TestEscaped(t *testing.T) {
	g, _ := maze.NewGrid("room", [][]int{{0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}}, 2)
	tests := []struct {
		p    maze.Point
		want bool
	}{
		{maze.Point{X: 0, Z: 0}, false},
		{maze.Point{X: 5, Z: 0}, false},
		{maze.Point{X: -5, Z: 5}, false},
		{maze.Point{X: 5.01, Z: 0}, true},
		{maze.Point{X: -5.01, Z: 0}, true},
		{maze.Point{X: 0, Z: -5.01}, true},
		{maze.Point{X: 0, Z: 7}, true},
	}
	for _, tt := range tests {
		if got := Escaped(g, tt.p); got != tt.want {
			t.Errorf("Escaped(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestStartSpawnsLevelRosters(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if c.State() != NotStarted {
		t.Fatalf("Expected NotStarted, got %s", c.State())
	}

	events, err := c.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	expectEvents(t, events, EventLevelStarted)
	expectKinds(t, c.Agents(), pursuit.Pursuer)

	expectEvents(t, escape(t, c), EventEscaped, EventLevelStarted)
	if c.Level() != 1 {
		t.Fatalf("Expected level 1, got %d", c.Level())
	}
	expectKinds(t, c.Agents(), pursuit.Melee, pursuit.Melee, pursuit.Ranged)

	expectEvents(t, escape(t, c), EventEscaped, EventLevelStarted)
	expectKinds(t, c.Agents(), pursuit.Pursuer, pursuit.Pursuer, pursuit.Ranged, pursuit.Ranged, pursuit.Heavy)

	lvl, _ := maze.DefaultRegistry().Level(2)
	for _, a := range c.Agents() {
		if lvl.Grid.IsWall(a.Pos.X, a.Pos.Z) {
			t.Errorf("agent %s spawned in a wall at %v", a.ID, a.Pos)
		}
		if d := a.Pos.Dist(lvl.PlayerStart); d < 4 {
			t.Errorf("agent %s spawned %v from the player start", a.ID, d)
		}
		if a.Health != 100 {
			t.Errorf("agent %s has health %d", a.ID, a.Health)
		}
	}
	if c.Player() != lvl.PlayerStart {
		t.Errorf("Player not reset to the level start, got %v", c.Player())
	}
}

func TestStartTwice(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
}

func TestTickOutsidePlayIsNoop(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	c.SetPlayer(maze.Point{X: 1000})
	events, err := c.Tick(1)
	if err != nil || events != nil {
		t.Errorf("Expected no events before Start, got %v, %v", events, err)
	}
	if c.State() != NotStarted || c.Elapsed() != 0 {
		t.Error("Tick before Start must not change state")
	}
}

func TestEscapeOnFinalLevelWins(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if _, err := c.Tick(0.1); err != nil {
			t.Fatal(err)
		}
	}
	// Paused time does not count.
	if err := c.SetPaused(true); err != nil {
		t.Fatal(err)
	}
	c.Tick(5)
	if err := c.SetPaused(false); err != nil {
		t.Fatal(err)
	}

	escape(t, c)
	escape(t, c)
	events := escape(t, c)
	expectEvents(t, events, EventEscaped, EventWon)
	if c.State() != Won {
		t.Fatalf("Expected Won, got %s", c.State())
	}
	if math.Abs(c.CompletionTime()-0.4) > 1e-9 {
		t.Errorf("Expected completion time 0.4s, got %v", c.CompletionTime())
	}
	if events[1].Time != c.CompletionTime() {
		t.Errorf("Won event time %v differs from completion time %v", events[1].Time, c.CompletionTime())
	}

	if events, _ := c.Tick(0.1); events != nil {
		t.Errorf("Expected no events after winning, got %v", events)
	}
}

func TestPauseSuspendsAgentsAndTimer(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if err := c.SetPaused(true); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Expected ErrNotPlaying before start, got %v", err)
	}
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}

	before := c.Agents()
	remaining := c.Remaining()
	if err := c.TogglePause(); err != nil || !c.Paused() {
		t.Fatalf("Expected paused, err=%v", err)
	}
	for i := 0; i < 10; i++ {
		c.Tick(0.1)
	}
	after := c.Agents()
	if after[0].Pos != before[0].Pos || c.Remaining() != remaining {
		t.Error("Agents and timer must not advance while paused")
	}

	if err := c.TogglePause(); err != nil || c.Paused() {
		t.Fatalf("Expected resumed, err=%v", err)
	}
	c.Tick(0.1)
	if c.Remaining() >= remaining {
		t.Error("Timer must resume after unpausing")
	}
	if c.Agents()[0].Pos == before[0].Pos {
		t.Error("Agent must resume after unpausing")
	}
}

func TestTimerRunsOut(t *testing.T) {
	c := newController(t, maze.DefaultRegistry(), WithLevelDuration(500*time.Millisecond))
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}

	var events []Event
	for i := 0; i < 20 && events == nil; i++ {
		var err error
		if events, err = c.Tick(0.1); err != nil {
			t.Fatal(err)
		}
	}
	expectEvents(t, events, EventTimedOut)
	if c.State() != Lost || c.Remaining() != 0 {
		t.Errorf("Expected Lost with no time left, got %s, %v", c.State(), c.Remaining())
	}
}

func TestCatchEndsRound(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Start(); err == nil {
		t.Fatal("Expected error on second start")
	}
	escape(t, c) // level 1, three agents

	target := c.Agents()[1]
	c.SetPlayer(target.Pos)
	events, err := c.Tick(0.05)
	if err != nil {
		t.Fatal(err)
	}
	expectEvents(t, events, EventCaught)
	if events[0].Agent == nil {
		t.Fatal("Caught event carries no agent")
	}
	if c.State() != Lost {
		t.Errorf("Expected Lost, got %s", c.State())
	}

	if events, _ := c.Tick(0.05); events != nil {
		t.Errorf("Catch must fire once, got %v", events)
	}
}

func TestHitAndElimination(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Hit("agent-1", 50); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Expected ErrNotPlaying, got %v", err)
	}
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	id := c.Agents()[0].ID

	events, err := c.Hit(id, 50)
	if err != nil || events != nil {
		t.Fatalf("First hit: %v, %v", events, err)
	}
	if c.Agents()[0].Health != 50 {
		t.Errorf("Expected health 50, got %d", c.Agents()[0].Health)
	}

	events, err = c.Hit(id, 50)
	if err != nil {
		t.Fatal(err)
	}
	expectEvents(t, events, EventEliminated)
	if events[0].Agent.ID != id {
		t.Errorf("Eliminated event for %s, want %s", events[0].Agent.ID, id)
	}
	if len(c.Agents()) != 0 {
		t.Errorf("Eliminated agent still active: %v", c.Agents())
	}

	if _, err := c.Hit(id, 50); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("Expected ErrUnknownAgent, got %v", err)
	}
}

func TestSingleHeavyHitEliminates(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	events, err := c.Hit(c.Agents()[0].ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	expectEvents(t, events, EventEliminated)
}

func TestRestartResetsEverything(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	escape(t, c)
	c.Tick(0.1)
	c.SetPaused(true)

	c.Restart()
	if c.State() != NotStarted || c.Level() != 0 || c.Paused() || len(c.Agents()) != 0 {
		t.Errorf("Unexpected state after restart: %+v", c.Snapshot())
	}
	if c.Elapsed() != 0 || c.Remaining() != 60 {
		t.Errorf("Timer not reset: elapsed=%v remaining=%v", c.Elapsed(), c.Remaining())
	}
	if _, err := c.Start(); err != nil {
		t.Errorf("Start after restart: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	s := c.Snapshot()
	if s.Agents == nil || s.Levels != 3 || s.LevelName != "Overgrown Hollow" {
		t.Errorf("Unexpected snapshot %+v", s)
	}

	c.Start()
	s = c.Snapshot()
	s.Agents[0].Health = 1
	if c.Agents()[0].Health != 100 {
		t.Error("Snapshot must not alias controller agents")
	}
}

func TestPathCacheOption(t *testing.T) {
	c := newController(t, maze.DefaultRegistry(), WithPathCache(true))
	if _, err := c.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		c.Tick(0.01)
	}
	hits, misses := c.PathCacheStats()
	if misses == 0 || hits == 0 {
		t.Errorf("Expected cache activity, got hits=%d misses=%d", hits, misses)
	}
}

func TestNewControllerRejectsUnknownKind(t *testing.T) {
	g, _ := maze.NewGrid("g", [][]int{{0}}, 2)
	reg, err := maze.NewRegistry(maze.Level{Name: "odd", Grid: g, Roster: []string{"dragon"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewController(reg); err == nil {
		t.Error("Expected error for an unknown roster kind")
	}
	if _, err := ParseRosters(reg); err == nil || !strings.Contains(err.Error(), "dragon") {
		t.Errorf("ParseRosters error = %v, want one naming the kind", err)
	}
	if _, err := ParseRosters(nil); err == nil {
		t.Error("Expected error for a missing registry")
	}

	rosters, err := ParseRosters(maze.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(rosters) != maze.DefaultRegistry().Len() {
		t.Errorf("Got %d rosters, want one per level", len(rosters))
	}
}

func testSpawner(g *maze.Grid, avoid maze.Point, attempts int) *spawner {
	s := newSpawner(g, avoid, rand.New(rand.NewSource(7)))
	s.attempts = attempts
	return s
}

func TestSpawnerFallbacks(t *testing.T) {
	walls, _ := maze.NewGrid("walls", [][]int{{1, 1}, {1, 1}}, 2)
	if _, err := testSpawner(walls, maze.Point{}, 10).next(); !errors.Is(err, ErrNoOpenCell) {
		t.Errorf("Expected ErrNoOpenCell, got %v", err)
	}

	// Every open cell is too close: fall back to any open cell.
	tiny, _ := maze.NewGrid("tiny", [][]int{{1, 1, 1}, {1, 0, 1}, {1, 1, 1}}, 2)
	p, err := testSpawner(tiny, maze.Point{}, 10).next()
	if err != nil || p != (maze.Point{}) {
		t.Errorf("Expected fallback to the only open cell, got %v, %v", p, err)
	}

	// Random draws disabled: the scan still finds a far cell.
	corridor, _ := maze.NewGrid("corridor", [][]int{{0, 0, 0, 0, 0}}, 2)
	p, err = testSpawner(corridor, corridor.CellToWorld(0, 0), 0).next()
	if err != nil || p.Dist(corridor.CellToWorld(0, 0)) < 4 {
		t.Errorf("Expected a cell at least 4 away, got %v, %v", p, err)
	}
}

func TestSpawnerPrefersReachableCells(t *testing.T) {
	// The right-hand column is walled off from the player.
	g, _ := maze.NewGrid("island", [][]int{
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1, 0, 0, 0, 0, 0, 1, 0},
		{1, 1, 1, 1, 1, 1, 1, 1},
	}, 2)
	start := g.CellToWorld(1, 1)
	s := testSpawner(g, start, 64)
	for i := 0; i < 50; i++ {
		p, err := s.next()
		if err != nil {
			t.Fatal(err)
		}
		c := g.WorldToCell(p.X, p.Z)
		if c.X == 7 {
			t.Fatalf("Spawned on the unreachable island at %v", c)
		}
		if p.Dist(start) < 4 {
			t.Fatalf("Spawned %v from the start", p.Dist(start))
		}
	}

	// Nothing reachable is far enough: a far island cell beats a close reachable one.
	near, _ := maze.NewGrid("near", [][]int{
		{1, 1, 1, 1, 1, 1},
		{1, 0, 0, 1, 1, 0},
		{1, 1, 1, 1, 1, 1},
	}, 2)
	p, err := testSpawner(near, near.CellToWorld(1, 1), 64).next()
	if err != nil || p != near.CellToWorld(5, 1) {
		t.Errorf("Expected the far island cell, got %v, %v", p, err)
	}
}

func TestShippedSpawnsAreReachable(t *testing.T) {
	reg := maze.DefaultRegistry()
	for i, lvl := range reg.Levels() {
		reachable := reachableCells(lvl.Grid, lvl.Grid.WorldToCell(lvl.PlayerStart.X, lvl.PlayerStart.Z))
		positions, err := spawnPositions(lvl.Grid, lvl.PlayerStart, 20, rand.New(rand.NewSource(int64(i))))
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range positions {
			if !reachable.Has(lvl.Grid.WorldToCell(p.X, p.Z)) {
				t.Errorf("%s: spawn %v is not reachable from the player start", lvl.Name, p)
			}
		}
	}
}

func TestLineOfSight(t *testing.T) {
	g, _ := maze.NewGrid("pillar", [][]int{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	}, 2)
	left, right := g.CellToWorld(0, 1), g.CellToWorld(2, 1)
	if LineOfSight(g, left, right) {
		t.Error("Pillar must block sight")
	}
	if !LineOfSight(g, g.CellToWorld(0, 0), g.CellToWorld(2, 0)) {
		t.Error("Open row must not block sight")
	}
}

func TestNearestVisibleAgent(t *testing.T) {
	c := newController(t, maze.DefaultRegistry())
	if _, ok := c.NearestVisibleAgent(100); ok {
		t.Error("No agents before start")
	}
	c.Start()
	a := c.Agents()[0]
	c.SetPlayer(a.Pos)
	got, ok := c.NearestVisibleAgent(1)
	if !ok || got.ID != a.ID {
		t.Errorf("Expected to see agent %s, got %v %v", a.ID, got.ID, ok)
	}
}
