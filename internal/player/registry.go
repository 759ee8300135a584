package player

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/udisondev/ssgo/internal/model"
)

// Registry is the process-wide table of connected players. Iteration is
// guarded by a reader/writer discipline: Lock/Unlock expose the reader
// side directly so callers can hold a consistent snapshot across
// multiple reads; AllocatePlayer/FreePlayer take the writer side
// internally and must not be invoked while a caller holds the reader
// lock.
type Registry struct {
	mu      sync.RWMutex
	players map[ID]*Player
	nextID  atomic.Uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{players: make(map[ID]*Player)}
}

// Lock acquires the reader-style guard for the duration of an iteration.
// Entries added concurrently are not visible until after the matching
// Unlock.
func (r *Registry) Lock() { r.mu.RLock() }

// Unlock releases the guard acquired by Lock.
func (r *Registry) Unlock() { r.mu.RUnlock() }

// AllocatePlayer creates and indexes a fresh Player in the Connected
// state. Must not be called while a caller holds the Lock() reader
// guard.
func (r *Registry) AllocatePlayer(endpoint, clientType string) *Player {
	id := ID(r.nextID.Add(1))
	p := newPlayer(id, endpoint, clientType)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[id] = p
	return p
}

// FreePlayer removes p from the registry. Only valid once p has reached a
// terminal lifecycle state (TimeWait).
func (r *Registry) FreePlayer(p *Player) error {
	if s := p.State(); s != model.TimeWait {
		return fmt.Errorf("player %d: FreePlayer called in non-terminal state %s", p.id, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, p.id)
	return nil
}

// Get looks up a player by id without requiring the caller to hold
// Lock(); it takes its own brief read lock. Prefer ForEach/iteration
// under an explicit Lock()/Unlock() pair when examining more than one
// player, to get a consistent snapshot.
func (r *Registry) Get(id ID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// ForEach calls fn for every player currently registered. The caller
// must already hold Lock() (ForEach does not take the lock itself) so
// that multi-step iterations can compose with other reads under one
// consistent snapshot.
func (r *Registry) ForEach(fn func(p *Player) bool) {
	for _, p := range r.players {
		if !fn(p) {
			return
		}
	}
}

// InArena calls fn for every player currently in the named arena. Caller
// must hold Lock().
func (r *Registry) InArena(arena string, fn func(p *Player) bool) {
	for _, p := range r.players {
		if p.Arena() == arena {
			if !fn(p) {
				return
			}
		}
	}
}
