package broker

import (
	"reflect"

	"github.com/google/uuid"
)

// AdvisorToken identifies one installed advisor implementation for a
// given capability on a given broker.
type AdvisorToken struct {
	id     uuid.UUID
	broker *Broker
	typ    reflect.Type
}

type advisorEntry struct {
	order []uuid.UUID
	impls map[uuid.UUID]any
}

// RegisterAdvisor installs impl as an advisor for capability T at broker
// b. Multiple advisors for the same T may coexist; GetAdvisors enumerates
// them all.
func RegisterAdvisor[T any](b *Broker, impl T) AdvisorToken {
	t := typeKey[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.advisors[t]
	if !ok {
		e = &advisorEntry{impls: make(map[uuid.UUID]any)}
		b.advisors[t] = e
	}

	id := newToken()
	e.order = append(e.order, id)
	e.impls[id] = impl

	return AdvisorToken{id: id, broker: b, typ: t}
}

// UnregisterAdvisor removes a previously installed advisor. No-op if
// already removed.
func UnregisterAdvisor(tok AdvisorToken) {
	if tok.broker == nil {
		return
	}
	b := tok.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.advisors[tok.typ]
	if !ok {
		return
	}
	if _, present := e.impls[tok.id]; !present {
		return
	}
	delete(e.impls, tok.id)
	for i, id := range e.order {
		if id == tok.id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// GetAdvisors returns the chain of advisors for capability T: this
// broker's advisors in registration order, followed by the parent
// broker's chain (local first).
func GetAdvisors[T any](b *Broker) []T {
	t := typeKey[T]()

	var out []T
	for cur := b; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		e, ok := cur.advisors[t]
		if ok {
			for _, id := range e.order {
				out = append(out, e.impls[id].(T))
			}
		}
		cur.mu.RUnlock()
	}
	return out
}
