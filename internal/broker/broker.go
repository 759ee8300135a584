// Package broker implements the module/component fabric: a tree of
// registries (one global, one per arena) that publish interface
// providers, ordered callbacks, and advisor chains, and route lookups
// from a local broker toward the root.
package broker

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Broker is one node in the registry tree. The global broker has a nil
// parent; every arena broker's parent is, directly or indirectly, the
// global broker.
type Broker struct {
	name   string
	parent *Broker

	mu         sync.RWMutex
	interfaces map[reflect.Type]*interfaceEntry
	callbacks  map[reflect.Type]*callbackEntry
	advisors   map[reflect.Type]*advisorEntry

	firingMu sync.Mutex
	firing   map[reflect.Type]bool
}

// New creates the root (global) broker.
func New(name string) *Broker {
	return &Broker{
		name:       name,
		interfaces: make(map[reflect.Type]*interfaceEntry),
		callbacks:  make(map[reflect.Type]*callbackEntry),
		advisors:   make(map[reflect.Type]*advisorEntry),
		firing:     make(map[reflect.Type]bool),
	}
}

// NewChild creates a broker whose parent is b. Callback firing and
// interface/advisor lookups on the child walk toward b and beyond.
func (b *Broker) NewChild(name string) *Broker {
	child := New(name)
	child.parent = b
	return child
}

// Parent returns the parent broker, or nil for the global broker.
func (b *Broker) Parent() *Broker { return b.parent }

// Name returns the broker's label, used only for logging.
func (b *Broker) Name() string { return b.name }

// Close tears the broker down. It fails if any interface is still
// registered with a nonzero refcount or any callback/advisor list is
// nonempty, per the broker teardown policy.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, e := range b.interfaces {
		if e.refcount.Load() != 0 {
			return fmt.Errorf("broker %q: interface %s still has %d refs", b.name, t, e.refcount.Load())
		}
	}
	for t, e := range b.callbacks {
		if len(e.handlers) != 0 {
			return fmt.Errorf("broker %q: callback %s still has %d handlers", b.name, t, len(e.handlers))
		}
	}
	for t, e := range b.advisors {
		if len(e.impls) != 0 {
			return fmt.Errorf("broker %q: advisor %s still has %d impls", b.name, t, len(e.impls))
		}
	}
	b.interfaces = nil
	b.callbacks = nil
	b.advisors = nil
	return nil
}

func newToken() uuid.UUID { return uuid.New() }

func typeKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
