package broker

import (
	"log/slog"
	"reflect"

	"github.com/google/uuid"
)

// CallbackToken identifies one registered handler for later removal.
type CallbackToken struct {
	id      uuid.UUID
	broker  *Broker
	typ     reflect.Type
}

type callbackEntry struct {
	// order preserves registration order; ids lets us find-and-remove by
	// token without disturbing the order of the rest.
	order    []uuid.UUID
	handlers map[uuid.UUID]reflect.Value
}

// RegisterCallback appends handler (a function value of any signature)
// to broker b's list for that signature. Handlers fire in registration
// order.
func RegisterCallback[F any](b *Broker, handler F) CallbackToken {
	t := typeKey[F]()
	v := reflect.ValueOf(handler)

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.callbacks[t]
	if !ok {
		e = &callbackEntry{handlers: make(map[uuid.UUID]reflect.Value)}
		b.callbacks[t] = e
	}

	id := newToken()
	e.order = append(e.order, id)
	e.handlers[id] = v

	return CallbackToken{id: id, broker: b, typ: t}
}

// UnregisterCallback removes a previously registered handler. It is a
// no-op if the token was already removed.
func UnregisterCallback(tok CallbackToken) {
	if tok.broker == nil {
		return
	}
	b := tok.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.callbacks[tok.typ]
	if !ok {
		return
	}
	if _, present := e.handlers[tok.id]; !present {
		return
	}
	delete(e.handlers, tok.id)
	for i, id := range e.order {
		if id == tok.id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// GetCallback returns a composite invoker of signature F: calling it runs
// every local handler in registration order, then recurses into the
// parent broker's composite invoker for the same signature. Firing never
// recurses into itself for the same (broker, signature) pair in one
// logical call — a handler that triggers the same event on the same
// broker while already firing is dropped and logged, per the
// non-reentrancy policy.
func GetCallback[F any](b *Broker) F {
	var zero F
	ft := reflect.TypeOf(&zero).Elem()

	fn := reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		fireChain(b, ft, args)
		return zeroResults(ft)
	})

	return fn.Interface().(F)
}

func fireChain(b *Broker, ft reflect.Type, args []reflect.Value) {
	for cur := b; cur != nil; cur = cur.parent {
		cur.firingMu.Lock()
		if cur.firing[ft] {
			cur.firingMu.Unlock()
			slog.Warn("broker: dropped reentrant callback fire",
				"broker", cur.name, "signature", ft.String())
			return
		}
		cur.firing[ft] = true
		cur.firingMu.Unlock()

		cur.mu.RLock()
		e, ok := cur.callbacks[ft]
		var snapshot []reflect.Value
		if ok {
			snapshot = make([]reflect.Value, 0, len(e.order))
			for _, id := range e.order {
				snapshot = append(snapshot, e.handlers[id])
			}
		}
		cur.mu.RUnlock()

		for _, h := range snapshot {
			h.Call(args)
		}

		cur.firingMu.Lock()
		cur.firing[ft] = false
		cur.firingMu.Unlock()
	}
}

func zeroResults(ft reflect.Type) []reflect.Value {
	out := make([]reflect.Value, ft.NumOut())
	for i := range out {
		out[i] = reflect.Zero(ft.Out(i))
	}
	return out
}
