package broker

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// InterfaceToken identifies one installed provider of a capability at a
// specific broker. Deregistering consumes the token.
type InterfaceToken struct {
	id     uuid.UUID
	broker *Broker
	typ    reflect.Type
}

// InterfaceRef is a counted handle returned alongside a looked-up
// implementation. Release is mandatory and idempotent.
type InterfaceRef struct {
	entry    *interfaceEntry
	released atomic.Bool
}

type interfaceEntry struct {
	impl     any
	refcount atomic.Int32
	token    uuid.UUID
}

// alreadyRegisteredError is returned by RegisterInterface when a provider
// for T already exists at this broker.
type alreadyRegisteredError struct {
	typ reflect.Type
}

func (e *alreadyRegisteredError) Error() string {
	return fmt.Sprintf("broker: interface %s already registered at this broker", e.typ)
}

// RegisterInterface installs impl as the unique provider of capability T
// at broker b. Callers that want visibility beyond one arena must choose
// the outermost (global) broker.
func RegisterInterface[T any](b *Broker, impl T) (InterfaceToken, error) {
	t := typeKey[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.interfaces[t]; exists {
		return InterfaceToken{}, &alreadyRegisteredError{typ: t}
	}

	tok := newToken()
	b.interfaces[t] = &interfaceEntry{impl: impl, token: tok}
	return InterfaceToken{id: tok, broker: b, typ: t}, nil
}

// GetInterface finds the nearest provider of T walking from b toward the
// root. It returns the implementation and a ref handle that must
// eventually be released; ok is false if no provider exists anywhere on
// the chain.
func GetInterface[T any](b *Broker) (impl T, ref *InterfaceRef, ok bool) {
	t := typeKey[T]()

	for cur := b; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		e, found := cur.interfaces[t]
		cur.mu.RUnlock()
		if !found {
			continue
		}
		e.refcount.Add(1)
		return e.impl.(T), &InterfaceRef{entry: e}, true
	}

	var zero T
	return zero, nil, false
}

// ReleaseInterface decrements the reference count acquired by
// GetInterface. It is safe to call multiple times; only the first call
// has effect.
func ReleaseInterface(ref *InterfaceRef) {
	if ref == nil || ref.released.Swap(true) {
		return
	}
	ref.entry.refcount.Add(-1)
}

// UnregisterInterface removes the provider identified by tok if its
// refcount has reached zero. Otherwise it leaves the registration intact
// and returns the remaining reference count.
func UnregisterInterface(tok InterfaceToken) (remainingRefs int32, err error) {
	if tok.broker == nil {
		return 0, fmt.Errorf("broker: zero-value interface token")
	}

	b := tok.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	e, found := b.interfaces[tok.typ]
	if !found || e.token != tok.id {
		return 0, fmt.Errorf("broker: interface %s not registered with this token", tok.typ)
	}

	if rc := e.refcount.Load(); rc != 0 {
		return rc, nil
	}

	delete(b.interfaces, tok.typ)
	return 0, nil
}
