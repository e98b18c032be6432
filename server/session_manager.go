package server

import (
	"fmt"
	"log"
	"sync"

	"labyrinth-server/leaderboard"
	"labyrinth-server/maze"
	"labyrinth-server/round"
)

// SessionManager manages all active game sessions and the level set new runs use.
type SessionManager struct {
	sessions      map[string]*Session
	sessionsMutex sync.RWMutex
	registry      *maze.Registry
	registryMutex sync.RWMutex
	board         *leaderboard.Board
	cfg           SessionConfig
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(registry *maze.Registry, board *leaderboard.Board, cfg SessionConfig) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		registry: registry,
		board:    board,
		cfg:      cfg,
	}
}

// Registry returns the level set new and restarted runs are built from.
func (sm *SessionManager) Registry() *maze.Registry {
	sm.registryMutex.RLock()
	defer sm.registryMutex.RUnlock()
	return sm.registry
}

// SetRegistry swaps the level set. Runs in progress keep their levels until they restart.
// A set whose rosters name unknown agent kinds is rejected and the current set stays.
func (sm *SessionManager) SetRegistry(registry *maze.Registry) error {
	if _, err := round.ParseRosters(registry); err != nil {
		return err
	}
	sm.registryMutex.Lock()
	sm.registry = registry
	sm.registryMutex.Unlock()
	log.Printf("Session manager: level set replaced, %d levels.", registry.Len())
	return nil
}

func (sm *SessionManager) Board() *leaderboard.Board { return sm.board }

// CreateSession starts a session whose messages are queued on out.
func (sm *SessionManager) CreateSession(id string, out chan<- []byte) (*Session, error) {
	sm.sessionsMutex.Lock()
	defer sm.sessionsMutex.Unlock()
	if _, exists := sm.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}
	s, err := NewSession(id, sm.Registry, sm.board, sm.cfg, out)
	if err != nil {
		return nil, err
	}
	sm.sessions[id] = s
	return s, nil
}

func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.sessionsMutex.RLock()
	defer sm.sessionsMutex.RUnlock()
	s, exists := sm.sessions[id]
	return s, exists
}

// RemoveSession stops and forgets a session. Once it returns the session has stopped writing.
func (sm *SessionManager) RemoveSession(id string) {
	sm.sessionsMutex.Lock()
	s, exists := sm.sessions[id]
	delete(sm.sessions, id)
	sm.sessionsMutex.Unlock()

	if exists {
		s.Close()
		log.Printf("Session %s: Removed.", id)
	}
}

func (sm *SessionManager) Count() int {
	sm.sessionsMutex.RLock()
	defer sm.sessionsMutex.RUnlock()
	return len(sm.sessions)
}

// Stats aggregates the state of every session for metrics.
type Stats struct {
	Sessions    int            `json:"sessions"`
	ByState     map[string]int `json:"by_state"`
	Agents      int            `json:"agents"`
	PathHits    uint64         `json:"path_cache_hits"`
	PathMisses  uint64         `json:"path_cache_misses"`
	LevelsTotal int            `json:"levels"`
}

func (sm *SessionManager) Stats() Stats {
	sm.sessionsMutex.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.sessionsMutex.RUnlock()

	st := Stats{Sessions: len(sessions), ByState: make(map[string]int), LevelsTotal: sm.Registry().Len()}
	for _, s := range sessions {
		snap := s.Snapshot()
		st.ByState[snap.State.String()]++
		st.Agents += len(snap.Agents)
		hits, misses := s.PathCacheStats()
		st.PathHits += hits
		st.PathMisses += misses
	}
	return st
}

// CloseAllSessions gracefully shuts down all sessions.
func (sm *SessionManager) CloseAllSessions() {
	sm.sessionsMutex.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.sessionsMutex.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Println("All sessions closed.")
}
