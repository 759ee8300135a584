// Package persist defines the Persist bridge contract: modules register
// a (key, interval, scope) tuple plus get/set/clear callbacks, and the
// store drives those callbacks at interval boundaries. The contract is
// storage-agnostic; internal/persist/pgstore is the one concrete
// adapter, kept separate so importing a SQL driver never leaks into the
// rest of the core.
package persist

import (
	"context"

	"github.com/udisondev/ssgo/internal/stats"
)

// Owner identifies whose data a Get/Set/Clear call concerns: either a
// single player (by a storage-level identity the caller supplies, e.g.
// an account name) or a whole arena group.
type Owner struct {
	PlayerKey string
	ArenaName string
}

// GetDataFunc serializes current in-memory state for owner and returns
// the resulting blob.
type GetDataFunc func(ctx context.Context, owner Owner) ([]byte, error)

// SetDataFunc deserializes previously saved state for owner from data.
type SetDataFunc func(ctx context.Context, owner Owner, data []byte) error

// ClearDataFunc zeroes owner's state for the registered key.
type ClearDataFunc func(ctx context.Context, owner Owner) error

// Registration is one module's persistence hook-up: a stable key
// disambiguating it from other registrations at the same
// (scope, interval), plus its three callbacks.
type Registration struct {
	Key      int32
	Scope    stats.Scope
	Interval stats.Interval
	Get      GetDataFunc
	Set      SetDataFunc
	Clear    ClearDataFunc
}

// Store is the Persist bridge contract: register once per module at
// startup, then call Save/Load/Clear to drive the registered callbacks,
// and NotifyIntervalEnd to tell every matching arena group an interval
// has ended (the arena then calls scoring.ScoreReset or a rules module's
// own interval-end handling in response, via stats.IntervalEndFunc).
type Store interface {
	Register(reg Registration) error
	Save(ctx context.Context, owner Owner) error
	Load(ctx context.Context, owner Owner) error
	Clear(ctx context.Context, owner Owner) error
	NotifyIntervalEnd(ctx context.Context, interval stats.Interval, arenaNames []string) error
	Close() error
}
