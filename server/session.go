package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"labyrinth-server/config"
	"labyrinth-server/leaderboard"
	"labyrinth-server/maze"
	"labyrinth-server/physics"
	"labyrinth-server/round"
)

var ErrInvalidPosition = errors.New("invalid player position")

// SessionConfig tunes the simulation of every session a manager creates.
type SessionConfig struct {
	TickInterval  time.Duration // Zero disables the session's own update loop
	LevelDuration time.Duration
	PathCache     bool
	Seed          int64 // Zero seeds from the clock
}

// Session is one player's run through the labyrinth. It owns a round controller,
// the physics world for the current level and the outgoing message queue of its client.
type Session struct {
	ID string

	mu           sync.Mutex
	registries   func() *maze.Registry // Current level set, consulted on restart
	registry     *maze.Registry        // Level set the controller was built from
	controller   *round.Controller
	world        *physics.World
	board        *leaderboard.Board
	cfg          SessionConfig
	name         string
	clientDriven bool // Player position comes from the client instead of the server world

	out     chan<- []byte
	ticking bool
	done    chan struct{} // Signals the session to shut down its Run loop
	stopped chan struct{}
	once    sync.Once
}

// NewSession builds a session on the current registry and, when the config has a tick
// interval, starts its update loop.
func NewSession(id string, registries func() *maze.Registry, board *leaderboard.Board, cfg SessionConfig, out chan<- []byte) (*Session, error) {
	s := &Session{
		ID:         id,
		registries: registries,
		board:      board,
		cfg:        cfg,
		name:       config.DefaultPlayerName,
		out:        out,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	if err := s.rebuild(registries()); err != nil {
		return nil, err
	}

	if cfg.TickInterval > 0 {
		s.ticking = true
		go s.Run()
	}
	log.Printf("Session %s: Initialized with %d levels.", id, s.registry.Len())
	return s, nil
}

func (s *Session) rebuild(reg *maze.Registry) error {
	opts := []round.Option{round.WithPathCache(s.cfg.PathCache)}
	if s.cfg.LevelDuration > 0 {
		opts = append(opts, round.WithLevelDuration(s.cfg.LevelDuration))
	}
	if s.cfg.Seed != 0 {
		opts = append(opts, round.WithRand(rand.New(rand.NewSource(s.cfg.Seed))))
	}
	c, err := round.NewController(reg, opts...)
	if err != nil {
		return fmt.Errorf("session %s: %w", s.ID, err)
	}
	s.registry = reg
	s.controller = c
	s.resetWorld()
	return nil
}

func (s *Session) resetWorld() {
	s.world = physics.NewWorld(s.controller.Grid(), s.controller.Player())
}

// Run is the main loop for the session, ticking at the configured interval.
func (s *Session) Run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer func() {
		ticker.Stop()
		close(s.stopped)
		log.Printf("Session %s: Update loop stopped.", s.ID)
	}()

	dt := s.cfg.TickInterval.Seconds()
	for {
		select {
		case <-ticker.C:
			s.advance(dt)
		case <-s.done:
			return
		}
	}
}

// Close stops the update loop and waits for it to exit. After Close returns the
// session no longer writes to its outgoing queue.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.ticking {
			<-s.stopped
		}
	})
}

// advance runs one simulation step: physics, then the round.
func (s *Session) advance(dt float64) {
	s.apply(func() ([]round.Event, error) {
		if s.controller.State() != round.Playing || s.controller.Paused() {
			return nil, nil
		}
		if !s.clientDriven {
			s.world.Step(dt)
			s.controller.SetPlayer(s.world.Position())
		}
		events, err := s.controller.Tick(dt)
		if err != nil {
			log.Printf("Session %s: ERROR Tick failed: %v", s.ID, err)
		}
		return events, err
	})
}

// apply runs action under the session lock, reacts to the events it produced and
// publishes them followed by the new state.
func (s *Session) apply(action func() ([]round.Event, error)) error {
	s.mu.Lock()
	events, err := action()
	notices := s.handleEvents(events)
	snap := s.controller.Snapshot()
	s.mu.Unlock()

	for _, ev := range events {
		s.send(map[string]interface{}{"type": "event", "event": ev})
	}
	for _, text := range notices {
		s.sendMessage(text)
	}
	s.send(map[string]interface{}{"type": "state_update", "state": snap})
	return err
}

// handleEvents must be called with s.mu held. It returns player-facing notices.
func (s *Session) handleEvents(events []round.Event) []string {
	var notices []string
	for _, ev := range events {
		log.Printf("Session %s: %s", s.ID, ev)
		switch ev.Kind {
		case round.EventLevelStarted:
			s.clientDriven = false
			s.resetWorld()
			notices = append(notices, fmt.Sprintf("Level %d: %s", ev.Level+1, ev.LevelName))
		case round.EventCaught:
			kind := "agent"
			if ev.Agent != nil {
				kind = ev.Agent.Kind.String()
			}
			notices = append(notices, fmt.Sprintf("Caught by a %s. Press restart to try again.", kind))
		case round.EventTimedOut:
			notices = append(notices, "Time is up. Press restart to try again.")
		case round.EventWon:
			notices = append(notices, s.recordScore(ev.Time))
		}
	}
	return notices
}

func (s *Session) recordScore(t float64) string {
	if s.board == nil {
		return fmt.Sprintf("You escaped in %.2f seconds.", t)
	}
	rank, err := s.board.Insert(leaderboard.Entry{Name: s.name, Time: t})
	if err != nil {
		log.Printf("Session %s: ERROR Failed to record score %.2f: %v", s.ID, t, err)
		return fmt.Sprintf("You escaped in %.2f seconds, but the score could not be saved.", t)
	}
	if rank == 0 {
		return fmt.Sprintf("You escaped in %.2f seconds.", t)
	}
	return fmt.Sprintf("You escaped in %.2f seconds. New record at rank %d!", t, rank)
}

// Start begins the first level.
func (s *Session) Start() error {
	return s.apply(func() ([]round.Event, error) {
		return s.controller.Start()
	})
}

// Restart returns to the first level. A level set reloaded since the last run takes effect here.
func (s *Session) Restart() error {
	return s.apply(func() ([]round.Event, error) {
		s.clientDriven = false
		if reg := s.registries(); reg != s.registry {
			err := s.rebuild(reg)
			if err == nil {
				return nil, nil
			}
			log.Printf("Session %s: ERROR Reloaded levels rejected, keeping the previous set: %v", s.ID, err)
		}
		s.controller.Restart()
		s.resetWorld()
		return nil, nil
	})
}

// Move sets the direction the server-side player body walks in.
func (s *Session) Move(dx, dz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientDriven = false
	s.world.SetIntent(dx, dz)
}

// SetPlayerPosition accepts a position integrated by the client.
func (s *Session) SetPlayerPosition(p maze.Point) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Z) || math.IsInf(p.X, 0) || math.IsInf(p.Z, 0) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, p.X, p.Z)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientDriven = true
	s.controller.SetPlayer(p)
	s.world.Reset(p)
	return nil
}

// SetPaused pauses or resumes the round; nil toggles.
func (s *Session) SetPaused(paused *bool) error {
	return s.apply(func() ([]round.Event, error) {
		if paused == nil {
			return nil, s.controller.TogglePause()
		}
		return nil, s.controller.SetPaused(*paused)
	})
}

// Hit damages the named agent.
func (s *Session) Hit(agentID string) error {
	return s.apply(func() ([]round.Event, error) {
		return s.controller.Hit(agentID, config.DefaultHitDamage)
	})
}

// Fire hits the nearest agent the player can see. It reports whether anything was hit.
func (s *Session) Fire() (bool, error) {
	hit := false
	err := s.apply(func() ([]round.Event, error) {
		if s.controller.State() != round.Playing || s.controller.Paused() {
			return nil, round.ErrNotPlaying
		}
		target, ok := s.controller.NearestVisibleAgent(config.FireRange)
		if !ok {
			return nil, nil
		}
		hit = true
		return s.controller.Hit(target.ID, config.DefaultHitDamage)
	})
	return hit, err
}

// SetName sets the name recorded with a winning run.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) Snapshot() round.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Snapshot()
}

// PathCacheStats reports path cache hits and misses for the current level.
func (s *Session) PathCacheStats() (hits, misses uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.PathCacheStats()
}

// initMessage describes the levels, colors and tuning a client needs before the first state update.
func (s *Session) initMessage() map[string]interface{} {
	s.mu.Lock()
	levels := s.registry.Infos()
	snap := s.controller.Snapshot()
	s.mu.Unlock()

	var top []leaderboard.Entry
	if s.board != nil {
		top = s.board.Top()
	}
	return map[string]interface{}{
		"type":       "init_data",
		"session_id": s.ID,
		"levels":     levels,
		"colors": map[string]interface{}{
			"player": colorJSON(config.PlayerColor),
			"agents": agentColorsJSON(),
		},
		"tuning": map[string]interface{}{
			"player_speed":   config.DefaultPlayerSpeed,
			"agent_speed":    config.DefaultAgentSpeed,
			"player_radius":  config.PLAYER_RADIUS,
			"agent_radius":   config.AGENT_RADIUS,
			"catch_distance": config.CatchDistance,
			"fire_range":     config.FireRange,
			"tick_interval":  s.cfg.TickInterval.Seconds(),
		},
		"leaderboard": top,
		"state":       snap,
	}
}

func colorJSON(c config.Color) map[string]uint8 {
	return map[string]uint8{"r": c.R, "g": c.G, "b": c.B, "a": c.A}
}

func agentColorsJSON() map[string]map[string]uint8 {
	out := make(map[string]map[string]uint8, len(config.AgentColors))
	for kind, c := range config.AgentColors {
		out[kind] = colorJSON(c)
	}
	return out
}

func (s *Session) sendMessage(text string) {
	s.send(map[string]interface{}{"type": "message", "text": text})
}

// send queues a message for the client without blocking the simulation.
func (s *Session) send(msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Session %s: ERROR Failed to marshal %v message: %v", s.ID, msg["type"], err)
		return
	}
	select {
	case s.out <- data:
	default:
		log.Printf("Session %s: WARNING Send buffer full, dropping %v message.", s.ID, msg["type"])
	}
}
