package pursuit

import (
	"fmt"
	"strings"

	"labyrinth-server/config"
	"labyrinth-server/maze"
)

// Kind is the type tag of an agent.
type Kind int

const (
	Pursuer Kind = iota
	Melee
	Ranged
	Heavy
)

var kindNames = [...]string{"pursuer", "melee", "ranged", "heavy"}

// Weapon names used by older level files.
var kindAliases = map[string]Kind{
	"basic":      Pursuer,
	"pistol":     Pursuer,
	"knife":      Melee,
	"shotgun":    Ranged,
	"rifle":      Ranged,
	"boss":       Heavy,
	"highpriest": Heavy,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown agent kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Agent is the value record of one pursuing agent. Every update returns a new record
// with Version incremented; callers write it back into their own collection.
type Agent struct {
	ID      string       `json:"id"`
	Kind    Kind         `json:"type"`
	Pos     maze.Point   `json:"position"`
	Heading maze.Point   `json:"heading"` // unit vector of the last move
	Speed   float64      `json:"speed"`
	Health  int          `json:"health"`
	Path    []maze.Point `json:"path,omitempty"`
	Version uint64       `json:"version"`
}

// NewAgent returns an agent at full health moving at the default speed.
func NewAgent(id string, kind Kind, pos maze.Point) Agent {
	return Agent{
		ID:     id,
		Kind:   kind,
		Pos:    pos,
		Speed:  config.DefaultAgentSpeed,
		Health: config.DefaultAgentHealth,
	}
}

// Alive reports whether the agent still has health left.
func (a Agent) Alive() bool { return a.Health > 0 }

// Hit applies damage and reports whether the agent was eliminated by it.
func (a Agent) Hit(damage int) (Agent, bool) {
	if damage < 0 {
		damage = 0
	}
	a.Health -= damage
	a.Version++
	return a, a.Health <= 0
}

// Waypoint returns the point the agent is currently steering toward.
func (a Agent) Waypoint() (maze.Point, bool) {
	if len(a.Path) == 0 {
		return maze.Point{}, false
	}
	return a.Path[0], true
}
