package round

import (
	"fmt"

	"labyrinth-server/pursuit"
)

// State is the round's position in the NotStarted -> Playing -> Won/Lost machine.
type State int

const (
	NotStarted State = iota
	Playing
	Won
	Lost
)

var stateNames = [...]string{"not_started", "playing", "won", "lost"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EventKind identifies a transition reported by the controller.
type EventKind int

const (
	EventLevelStarted EventKind = iota
	EventEscaped                // player left the maze; a new level follows unless it was the last
	EventWon
	EventCaught
	EventTimedOut
	EventEliminated
)

var eventNames = [...]string{"level_started", "escaped", "won", "caught", "timed_out", "eliminated"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(k))
	}
	return eventNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is emitted by Start, Tick and Hit.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Level     int            `json:"level"`
	LevelName string         `json:"level_name,omitempty"`
	Agent     *pursuit.Agent `json:"agent,omitempty"` // set on EventCaught and EventEliminated
	Time      float64        `json:"time,omitempty"`  // completion time, set on EventWon
}

func (e Event) String() string {
	switch e.Kind {
	case EventCaught, EventEliminated:
		if e.Agent != nil {
			return fmt.Sprintf("%s level=%d agent=%s (%s)", e.Kind, e.Level, e.Agent.ID, e.Agent.Kind)
		}
		return fmt.Sprintf("%s level=%d", e.Kind, e.Level)
	case EventWon:
		return fmt.Sprintf("%s level=%d time=%.2fs", e.Kind, e.Level, e.Time)
	default:
		return fmt.Sprintf("%s level=%d", e.Kind, e.Level)
	}
}
