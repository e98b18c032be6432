package config

import "time"

// Maze World Dimensions and Entity Sizes
const (
	MAZE_CELL_WORLD_SIZE = 2.0 // Edge length of one maze cell in world units
	PLAYER_RADIUS        = 0.3 // Collision radius of the player body
	AGENT_RADIUS         = 0.5 // Visual radius of a pursuing agent
)

// Game Speeds (world units per second)
const (
	DefaultPlayerSpeed = 5.0
	DefaultAgentSpeed  = 3.0
)

// Pursuit and Combat
const (
	CatchDistance      = 1.0 // An agent closer than this to the player catches them
	DefaultAgentHealth = 100
	DefaultHitDamage   = 50
	FireRange          = 24.0 // Maximum distance at which a shot can hit an agent
)

// Round Timing
const (
	LevelDuration = 60 * time.Second      // Time budget per maze
	TICK_INTERVAL = 50 * time.Millisecond // Session simulation interval (20 ticks per second)
)

// Spawn Placement
const (
	SpawnAttempts    = 64  // Random draws before falling back to a scan of all open cells
	SpawnMinDistance = 4.0 // Minimum world distance between a spawned agent and the player start
)

// LeaderboardSize is the number of score records kept.
const LeaderboardSize = 10

// DefaultPlayerName is used for score records submitted without a name.
const DefaultPlayerName = "Detective"

// Color represents a simplified RGBA representation. Clients interpret these values for rendering.
type Color struct {
	R, G, B, A uint8
}

// AgentColors maps agent kinds to their display colors.
var AgentColors = map[string]Color{
	"pursuer": {R: 255, G: 0, B: 0, A: 255},   // Red for cultists
	"melee":   {R: 255, G: 165, B: 0, A: 255}, // Gold for knives
	"ranged":  {R: 255, G: 69, B: 0, A: 255},  // Orange for shotguns and rifles
	"heavy":   {R: 128, G: 0, B: 128, A: 255}, // Purple for the high priest
}

// PlayerColor is the display color of the controlled player.
var PlayerColor = Color{R: 68, G: 68, B: 68, A: 255}
