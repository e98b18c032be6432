package round

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"labyrinth-server/config"
	"labyrinth-server/maze"
	"labyrinth-server/pursuit"
)

var (
	ErrNotPlaying     = errors.New("round is not in progress")
	ErrAlreadyStarted = errors.New("round already started")
	ErrUnknownAgent   = errors.New("unknown agent")
)

// Controller owns one round: the active level, its agents, the player position and the timer.
// It is not safe for concurrent use; the host loop serializes calls.
type Controller struct {
	registry      *maze.Registry
	rosters       [][]pursuit.Kind
	rng           *rand.Rand
	newID         func() string
	levelDuration float64
	pathCache     bool

	state   State
	paused  bool
	level   int
	grid    *maze.Grid
	stepper *pursuit.Stepper
	agents  []pursuit.Agent
	player  maze.Point

	remaining  float64 // seconds left on the level timer
	elapsed    float64 // unpaused play time across all levels
	completion float64
}

type Option func(*Controller)

func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

func WithLevelDuration(d time.Duration) Option {
	return func(c *Controller) { c.levelDuration = d.Seconds() }
}

// WithPathCache makes agents reuse their path while neither endpoint changes cell.
func WithPathCache(enabled bool) Option {
	return func(c *Controller) { c.pathCache = enabled }
}

// WithIDFunc sets the agent ID generator.
func WithIDFunc(f func() string) Option {
	return func(c *Controller) { c.newID = f }
}

// NewController validates every level roster and returns a controller waiting for Start.
func NewController(registry *maze.Registry, opts ...Option) (*Controller, error) {
	c := &Controller{
		registry:      registry,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:         uuid.NewString,
		levelDuration: config.LevelDuration.Seconds(),
	}
	for _, opt := range opts {
		opt(c)
	}

	rosters, err := ParseRosters(registry)
	if err != nil {
		return nil, err
	}
	c.rosters = rosters

	c.reset()
	return c, nil
}

// ParseRosters resolves the agent kinds of every level, in level order.
func ParseRosters(registry *maze.Registry) ([][]pursuit.Kind, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, errors.New("round: registry has no levels")
	}
	rosters := make([][]pursuit.Kind, 0, registry.Len())
	for i, lvl := range registry.Levels() {
		kinds := make([]pursuit.Kind, 0, len(lvl.Roster))
		for _, name := range lvl.Roster {
			k, err := pursuit.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("round: level %d (%s): %w", i, lvl.Name, err)
			}
			kinds = append(kinds, k)
		}
		rosters = append(rosters, kinds)
	}
	return rosters, nil
}

func (c *Controller) reset() {
	c.state = NotStarted
	c.paused = false
	c.level = 0
	c.agents = nil
	c.elapsed = 0
	c.completion = 0
	c.remaining = c.levelDuration
	lvl, _ := c.registry.Level(0)
	c.grid = lvl.Grid
	c.player = lvl.PlayerStart
	c.stepper = nil
}

// Start spawns the first level's agents and starts the timer.
func (c *Controller) Start() ([]Event, error) {
	if c.state != NotStarted {
		return nil, ErrAlreadyStarted
	}
	if err := c.loadLevel(0); err != nil {
		return nil, err
	}
	c.state = Playing
	return []Event{c.levelEvent(EventLevelStarted)}, nil
}

// Restart returns to NotStarted on the first level from any state.
func (c *Controller) Restart() {
	c.reset()
}

func (c *Controller) loadLevel(i int) error {
	lvl, ok := c.registry.Level(i)
	if !ok {
		return fmt.Errorf("round: level %d out of range", i)
	}
	positions, err := spawnPositions(lvl.Grid, lvl.PlayerStart, len(c.rosters[i]), c.rng)
	if err != nil {
		return fmt.Errorf("round: spawn agents for level %d (%s): %w", i, lvl.Name, err)
	}

	var opts []pursuit.Option
	if c.pathCache {
		opts = append(opts, pursuit.WithPathCache(pursuit.NewPathCache()))
	}

	agents := make([]pursuit.Agent, len(positions))
	for j, p := range positions {
		agents[j] = pursuit.NewAgent(c.newID(), c.rosters[i][j], p)
	}

	c.level = i
	c.grid = lvl.Grid
	c.stepper = pursuit.NewStepper(lvl.Grid, opts...)
	c.agents = agents
	c.player = lvl.PlayerStart
	c.remaining = c.levelDuration
	return nil
}

// SetPlayer records the player position for the next tick.
func (c *Controller) SetPlayer(p maze.Point) {
	c.player = p
}

// Tick advances the round by dt seconds. Escape is checked first, then every agent steps
// against the same player position, then catches and the timer are resolved.
// Nothing happens unless the round is playing and not paused.
func (c *Controller) Tick(dt float64) ([]Event, error) {
	if c.state != Playing || c.paused || dt <= 0 {
		return nil, nil
	}

	if Escaped(c.grid, c.player) {
		return c.escape()
	}

	player := c.player
	var catcher *pursuit.Agent
	for i := range c.agents {
		next, caught := c.stepper.Step(c.agents[i], player, dt)
		c.agents[i] = next
		if caught && catcher == nil {
			a := next
			catcher = &a
		}
	}
	if catcher != nil {
		c.state = Lost
		ev := c.levelEvent(EventCaught)
		ev.Agent = catcher
		return []Event{ev}, nil
	}

	c.elapsed += dt
	c.remaining -= dt
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = Lost
		return []Event{c.levelEvent(EventTimedOut)}, nil
	}
	return nil, nil
}

func (c *Controller) escape() ([]Event, error) {
	events := []Event{c.levelEvent(EventEscaped)}
	if c.level == c.registry.Len()-1 {
		c.state = Won
		c.completion = c.elapsed
		won := c.levelEvent(EventWon)
		won.Time = c.completion
		return append(events, won), nil
	}
	if err := c.loadLevel(c.level + 1); err != nil {
		return events, err
	}
	return append(events, c.levelEvent(EventLevelStarted)), nil
}

// Hit applies damage to an agent and removes it from the active set when eliminated.
func (c *Controller) Hit(agentID string, damage int) ([]Event, error) {
	if c.state != Playing || c.paused {
		return nil, ErrNotPlaying
	}
	for i, a := range c.agents {
		if a.ID != agentID {
			continue
		}
		next, eliminated := a.Hit(damage)
		if !eliminated {
			c.agents[i] = next
			return nil, nil
		}

		agents := make([]pursuit.Agent, 0, len(c.agents)-1)
		agents = append(agents, c.agents[:i]...)
		c.agents = append(agents, c.agents[i+1:]...)
		if cache := c.stepper.Cache(); cache != nil {
			cache.Forget(agentID)
		}
		ev := c.levelEvent(EventEliminated)
		ev.Agent = &next
		return []Event{ev}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
}

// SetPaused suspends or resumes agents and the timer.
func (c *Controller) SetPaused(paused bool) error {
	if c.state != Playing {
		return ErrNotPlaying
	}
	c.paused = paused
	return nil
}

func (c *Controller) TogglePause() error {
	return c.SetPaused(!c.paused)
}

func (c *Controller) levelEvent(kind EventKind) Event {
	lvl, _ := c.registry.Level(c.level)
	return Event{Kind: kind, Level: c.level, LevelName: lvl.Name}
}

func (c *Controller) State() State            { return c.state }
func (c *Controller) Paused() bool            { return c.paused }
func (c *Controller) Level() int              { return c.level }
func (c *Controller) Grid() *maze.Grid        { return c.grid }
func (c *Controller) Player() maze.Point      { return c.player }
func (c *Controller) Remaining() float64      { return c.remaining }
func (c *Controller) Elapsed() float64        { return c.elapsed }
func (c *Controller) CompletionTime() float64 { return c.completion }

// Agents returns a copy of the active agents in spawn order.
func (c *Controller) Agents() []pursuit.Agent {
	return append([]pursuit.Agent(nil), c.agents...)
}

// PathCacheStats reports path reuse for the current level, or zeros without a cache.
func (c *Controller) PathCacheStats() (hits, misses uint64) {
	if c.stepper == nil || c.stepper.Cache() == nil {
		return 0, 0
	}
	return c.stepper.Cache().Stats()
}

// Snapshot is a point-in-time view of the round for hosts and clients.
type Snapshot struct {
	State          State           `json:"state"`
	Paused         bool            `json:"paused"`
	Level          int             `json:"level"`
	LevelName      string          `json:"level_name"`
	Levels         int             `json:"levels"`
	Player         maze.Point      `json:"player"`
	Agents         []pursuit.Agent `json:"agents"`
	Remaining      float64         `json:"remaining"`
	Elapsed        float64         `json:"elapsed"`
	CompletionTime float64         `json:"completion_time,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	lvl, _ := c.registry.Level(c.level)
	agents := c.Agents()
	if agents == nil {
		agents = []pursuit.Agent{}
	}
	return Snapshot{
		State:          c.state,
		Paused:         c.paused,
		Level:          c.level,
		LevelName:      lvl.Name,
		Levels:         c.registry.Len(),
		Player:         c.player,
		Agents:         agents,
		Remaining:      c.remaining,
		Elapsed:        c.elapsed,
		CompletionTime: c.completion,
	}
}
