package fact

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Reader reads fact values.
type Reader interface {
	// Get returns the current value of fact for player, or 0 if unset.
	Get(player, fact string) int
}

// Store is the process-wide fact store.
type Store interface {
	Reader

	// Apply writes fact for player per op and returns the new value.
	Apply(player, fact string, op ir.ModifierOperator, value int) int

	// Snapshot returns a copy of every fact set for player.
	Snapshot(player string) map[string]int

	// Seed merges values into player's facts, overwriting existing keys.
	Seed(player string, values map[string]int)

	// Clear drops every fact held for player.
	Clear(player string)

	// Players returns the players that currently hold facts, sorted.
	Players() []string
}

// Persister loads and saves a player's facts across sessions.
// Implemented by store.Store.
type Persister interface {
	LoadFacts(ctx context.Context, player string) (map[string]int, error)
	SaveFacts(ctx context.Context, player string, values map[string]int) error
}

// playerFacts is one player's fact table.
type playerFacts struct {
	mu     sync.RWMutex
	values map[string]int
}

// Memory is an in-process Store.
//
// Thread-safety: all methods are safe for concurrent use. The player map is
// a sync.Map; each player's table has its own RWMutex.
type Memory struct {
	players sync.Map // player -> *playerFacts
}

// NewMemory creates an empty in-memory fact store.
func NewMemory() *Memory {
	return &Memory{}
}

// table returns the player's table, creating it when create is true.
func (m *Memory) table(player string, create bool) *playerFacts {
	if v, ok := m.players.Load(player); ok {
		return v.(*playerFacts)
	}
	if !create {
		return nil
	}
	v, _ := m.players.LoadOrStore(player, &playerFacts{values: make(map[string]int)})
	return v.(*playerFacts)
}

// Get returns the current value of fact for player, or 0 if unset.
func (m *Memory) Get(player, fact string) int {
	t := m.table(player, false)
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.values[fact]
}

// Apply writes fact for player and returns the new value.
// SET replaces the value; ADD increments it, saturating at the int range
// instead of wrapping. An invalid operator leaves the fact untouched.
func (m *Memory) Apply(player, fact string, op ir.ModifierOperator, value int) int {
	t := m.table(player, true)
	t.mu.Lock()
	defer t.mu.Unlock()

	switch op {
	case ir.Set:
		t.values[fact] = value
	case ir.Add:
		t.values[fact] = saturatingAdd(t.values[fact], value)
	}
	return t.values[fact]
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	default:
		return a + b
	}
}

// Snapshot returns a copy of every fact set for player.
// The result is never nil.
func (m *Memory) Snapshot(player string) map[string]int {
	out := make(map[string]int)
	t := m.table(player, false)
	if t == nil {
		return out
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Seed merges values into player's facts.
func (m *Memory) Seed(player string, values map[string]int) {
	if len(values) == 0 {
		return
	}
	t := m.table(player, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range values {
		t.values[k] = v
	}
}

// Clear drops every fact held for player. Clearing an unknown player is a
// no-op.
func (m *Memory) Clear(player string) {
	m.players.Delete(player)
}

// Players returns the players that currently hold a fact table, sorted.
func (m *Memory) Players() []string {
	var out []string
	m.players.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}
