package leaderboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"labyrinth-server/config"
)

const maxNameLength = 32

var ErrInvalidEntry = errors.New("invalid score entry")

// Entry is one completed run: who and how many seconds it took.
type Entry struct {
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

// Store persists the board between runs.
type Store interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// Board keeps the fastest runs in ascending time order. Entries with equal times keep
// their insertion order.
type Board struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	store   Store
}

// New returns an empty in-memory board.
func New(limit int) *Board {
	if limit <= 0 {
		limit = config.LeaderboardSize
	}
	return &Board{limit: limit}
}

// Open loads a board from store. Invalid stored entries are dropped.
func Open(store Store, limit int) (*Board, error) {
	b := New(limit)
	b.store = store
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: load: %w", err)
	}
	for _, e := range entries {
		if e, err := normalize(e); err == nil {
			b.entries = append(b.entries, e)
		}
	}
	sort.SliceStable(b.entries, func(i, j int) bool { return b.entries[i].Time < b.entries[j].Time })
	if len(b.entries) > b.limit {
		b.entries = b.entries[:b.limit]
	}
	return b, nil
}

func normalize(e Entry) (Entry, error) {
	if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) || e.Time < 0 {
		return Entry{}, fmt.Errorf("%w: time %v", ErrInvalidEntry, e.Time)
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		e.Name = config.DefaultPlayerName
	}
	if utf8.RuneCountInString(e.Name) > maxNameLength {
		e.Name = string([]rune(e.Name)[:maxNameLength])
	}
	return e, nil
}

// Insert records a run and returns its 1-based rank, or 0 when it did not make the board.
func (b *Board) Insert(e Entry) (int, error) {
	e, err := normalize(e)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// First position with a strictly greater time keeps ties in insertion order.
	pos := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].Time > e.Time })
	if pos >= b.limit {
		return 0, nil
	}

	entries := make([]Entry, 0, len(b.entries)+1)
	entries = append(entries, b.entries[:pos]...)
	entries = append(entries, e)
	entries = append(entries, b.entries[pos:]...)
	if len(entries) > b.limit {
		entries = entries[:b.limit]
	}

	if b.store != nil {
		if err := b.store.Save(entries); err != nil {
			return 0, fmt.Errorf("leaderboard: save: %w", err)
		}
	}
	b.entries = entries
	return pos + 1, nil
}

// Top returns a copy of the ranked entries.
func (b *Board) Top() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Qualifies reports whether a run of the given time would make the board.
func (b *Board) Qualifies(t float64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries) < b.limit || t < b.entries[len(b.entries)-1].Time
}

func (b *Board) Limit() int { return b.limit }
