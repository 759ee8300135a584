// Package pgstore is the one concrete Persist bridge adapter: a
// pgx/pgxpool-backed store that drives registered
// (key, scope, interval) callbacks and persists their opaque blobs in a
// single table. This is the only place in the core that imports a SQL
// driver, grounded directly on the teacher's db.New/pgxpool wiring and
// PlayerPersistenceService's get/set round-trip shape.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/ssgo/internal/persist"
	"github.com/udisondev/ssgo/internal/stats"
)

// Store is a pgx-backed persist.Store. The zero value is not usable;
// call New.
type Store struct {
	pool *pgxpool.Pool

	regs []persist.Registration
}

// New connects to PostgreSQL and returns a ready Store. Callers should
// run RunMigrations against the same dsn before first use.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: pinging: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Register records reg for later Save/Load/Clear calls. Registrations
// are consulted in registration order.
func (s *Store) Register(reg persist.Registration) error {
	for _, existing := range s.regs {
		if existing.Key == reg.Key && existing.Scope == reg.Scope && existing.Interval == reg.Interval {
			return fmt.Errorf("pgstore: key %d already registered for scope=%d interval=%d", reg.Key, reg.Scope, reg.Interval)
		}
	}
	s.regs = append(s.regs, reg)
	return nil
}

func (s *Store) ownerKey(owner persist.Owner) string {
	if owner.PlayerKey != "" {
		return "player:" + owner.PlayerKey
	}
	return "arena:" + owner.ArenaName
}

// Save serializes every registered callback's current state for owner
// and upserts it into player_stats, one row per (owner, key).
func (s *Store) Save(ctx context.Context, owner persist.Owner) error {
	key := s.ownerKey(owner)
	for _, reg := range s.regs {
		blob, err := reg.Get(ctx, owner)
		if err != nil {
			return fmt.Errorf("pgstore: Save: key %d: %w", reg.Key, err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO player_stats (owner_key, stat_key, scope, interval, blob, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (owner_key, stat_key, scope, interval)
			DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at
		`, key, reg.Key, int32(reg.Scope), int32(reg.Interval), blob)
		if err != nil {
			return fmt.Errorf("pgstore: Save: upserting key %d for %q: %w", reg.Key, key, err)
		}
	}
	return nil
}

// Load restores every registered callback's state for owner from the
// stored blob, if one exists. A registration with no stored row yet is
// skipped, not an error (first login, first arena creation).
func (s *Store) Load(ctx context.Context, owner persist.Owner) error {
	key := s.ownerKey(owner)
	for _, reg := range s.regs {
		var blob []byte
		err := s.pool.QueryRow(ctx, `
			SELECT blob FROM player_stats
			WHERE owner_key = $1 AND stat_key = $2 AND scope = $3 AND interval = $4
		`, key, reg.Key, int32(reg.Scope), int32(reg.Interval)).Scan(&blob)
		if err != nil {
			if err.Error() == "no rows in result set" {
				continue
			}
			return fmt.Errorf("pgstore: Load: key %d for %q: %w", reg.Key, key, err)
		}
		if err := reg.Set(ctx, owner, blob); err != nil {
			return fmt.Errorf("pgstore: Load: applying key %d for %q: %w", reg.Key, key, err)
		}
	}
	return nil
}

// Clear zeroes every registered callback's in-memory state for owner
// and removes its stored rows.
func (s *Store) Clear(ctx context.Context, owner persist.Owner) error {
	key := s.ownerKey(owner)
	for _, reg := range s.regs {
		if err := reg.Clear(ctx, owner); err != nil {
			return fmt.Errorf("pgstore: Clear: key %d for %q: %w", reg.Key, key, err)
		}
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM player_stats WHERE owner_key = $1`, key)
	if err != nil {
		return fmt.Errorf("pgstore: Clear: deleting rows for %q: %w", key, err)
	}
	return nil
}

// NotifyIntervalEnd saves every registration matching interval for each
// named arena (so the ending interval's values are durable) before the
// caller broadcasts the reset. Global-scope registrations are skipped and
// left to the caller's own per-player save cadence.
func (s *Store) NotifyIntervalEnd(ctx context.Context, interval stats.Interval, arenaNames []string) error {
	for _, name := range arenaNames {
		owner := persist.Owner{ArenaName: name}
		for _, reg := range s.regs {
			if reg.Interval != interval || reg.Scope == stats.Global {
				continue
			}
			blob, err := reg.Get(ctx, owner)
			if err != nil {
				slog.Error("pgstore: interval-end save failed", "arena", name, "key", reg.Key, "err", err)
				continue
			}
			if _, err := s.pool.Exec(ctx, `
				INSERT INTO player_stats (owner_key, stat_key, scope, interval, blob, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
				ON CONFLICT (owner_key, stat_key, scope, interval)
				DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at
			`, s.ownerKey(owner), reg.Key, int32(reg.Scope), int32(reg.Interval), blob); err != nil {
				slog.Error("pgstore: interval-end upsert failed", "arena", name, "key", reg.Key, "err", err)
			}
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
