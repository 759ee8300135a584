// Package slotdata implements keyed typed extension slots on shared
// entities (players, arenas) so modules can attach state without
// modifying the shared struct. A SlotKey[T] is an opaque handle returned
// by Allocate; looking it up on a Holder returns a pointer to a
// zero-initialized T, created lazily on first access.
package slotdata

import "sync"

var (
	registryMu sync.Mutex
	nextID     int
)

// SlotKey is an opaque, typed handle for one extension slot.
type SlotKey[T any] struct {
	id   int
	name string
}

// Allocate reserves a new slot for values of type T. name is used only
// for diagnostics (logging, panics on misuse never occur — a miss simply
// returns a fresh zero value).
func Allocate[T any](name string) SlotKey[T] {
	registryMu.Lock()
	defer registryMu.Unlock()
	id := nextID
	nextID++
	return SlotKey[T]{id: id, name: name}
}

// Name returns the slot's diagnostic label.
func (k SlotKey[T]) Name() string { return k.name }

// Table is embedded in Player and Arena to hold their slot data. The zero
// value is ready to use.
type Table struct {
	mu   sync.Mutex
	data map[int]any
}

// Get returns the slot for key, creating a zero-initialized T on first
// access. The returned pointer stays the same until Clear is called;
// after Clear, the next Get creates a fresh zero value.
func Get[T any](t *Table, key SlotKey[T]) *T {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.data == nil {
		t.data = make(map[int]any)
	}

	if v, ok := t.data[key.id]; ok {
		return v.(*T)
	}

	v := new(T)
	t.data[key.id] = v
	return v
}

// Clear removes every slot from the table. Used when returning an entity
// (typically an Arena) to a pool or tearing it down.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = nil
}
