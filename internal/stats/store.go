package stats

import (
	"sync"
	"time"
)

type bucketKey struct {
	scope    Scope // Global or Arena only; All is expanded by the caller
	interval Interval
}

// Store is one player's multi-interval, multi-scope counters, timers,
// and timestamps. It is guarded by a single per-player mutex: all
// in-place mutations take this lock, while network packet emission
// happens outside it.
type Store struct {
	mu   sync.Mutex
	data map[bucketKey]map[StatCode]*Entry

	// dirty tracks the four broadcast-relevant stats at (Arena, Reset)
	// for TakeDirtySnapshot.
	dirty map[StatCode]bool
}

// NewStore creates an empty stats store.
func NewStore() *Store {
	return &Store{
		data:  make(map[bucketKey]map[StatCode]*Entry),
		dirty: make(map[StatCode]bool),
	}
}

func defaultKindFor(code StatCode) Kind {
	switch code {
	case ArenaTotalTime:
		return KindDuration
	default:
		return KindInt32
	}
}

func (s *Store) bucket(scope Scope, interval Interval) map[StatCode]*Entry {
	key := bucketKey{scope: scope, interval: interval}
	b, ok := s.data[key]
	if !ok {
		b = make(map[StatCode]*Entry)
		s.data[key] = b
	}
	return b
}

func (s *Store) entry(scope Scope, interval Interval, code StatCode, kind Kind) *Entry {
	b := s.bucket(scope, interval)
	e, ok := b[code]
	if !ok {
		e = newNumericEntry(kind)
		b[code] = e
		return e
	}
	if e.kind != kind {
		promoted := e.promote(kind)
		b[code] = promoted
		return promoted
	}
	return e
}

func scopesFor(scope Scope) []Scope {
	if scope == All {
		return []Scope{Global, Arena}
	}
	return []Scope{scope}
}

func (s *Store) markDirtyIfTracked(scope Scope, interval Interval, code StatCode) {
	if scope != Arena || interval != Reset {
		return
	}
	switch code {
	case KillPoints, FlagPoints, Kills, Deaths:
		s.dirty[code] = true
	}
}

// Increment adds amount to a numeric or duration stat, creating it with
// its default kind if absent.
func (s *Store) Increment(scope Scope, interval Interval, code StatCode, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		e := s.entry(sc, interval, code, defaultKindFor(code))
		e.increment(amount)
		s.markDirtyIfTracked(sc, interval, code)
	}
}

// Set assigns value directly (numeric, timestamp-as-unixnano, or
// duration-as-nanoseconds depending on the stat's kind).
func (s *Store) Set(scope Scope, interval Interval, code StatCode, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		e := s.entry(sc, interval, code, defaultKindFor(code))
		e.setInt64(value)
		s.markDirtyIfTracked(sc, interval, code)
	}
}

// SetTimestamp assigns a wall-clock timestamp stat, creating it as
// KindTimestamp if absent (or promoting it to that kind).
func (s *Store) SetTimestamp(scope Scope, interval Interval, code StatCode, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		e := s.entry(sc, interval, code, KindTimestamp)
		e.ts = when
		s.markDirtyIfTracked(sc, interval, code)
	}
}

// TryGet reads a single (scope, interval) bucket's value. scope must be
// Global or Arena: unlike Increment/Set, TryGet does not accept All
// since summing two buckets for a read has no single well-defined value.
func (s *Store) TryGet(scope Scope, interval Interval, code StatCode) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[bucketKey{scope: scope, interval: interval}]
	if !ok {
		return 0, false
	}
	e, ok := b[code]
	if !ok {
		return 0, false
	}
	return e.Int64Value(), true
}

// StartTimer, StopTimer, and ResetTimer operate on duration stats.
func (s *Store) StartTimer(scope Scope, interval Interval, code StatCode, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		s.entry(sc, interval, code, KindDuration).startTimer(now)
	}
}

func (s *Store) StopTimer(scope Scope, interval Interval, code StatCode, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		s.entry(sc, interval, code, KindDuration).stopTimer(now)
	}
}

func (s *Store) ResetTimer(scope Scope, interval Interval, code StatCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		s.entry(sc, interval, code, KindDuration).resetTimer()
	}
}

// Elapsed reads a duration stat's accumulated value including any
// in-progress run.
func (s *Store) Elapsed(scope Scope, interval Interval, code StatCode, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[bucketKey{scope: scope, interval: interval}]
	if !ok {
		return 0
	}
	e, ok := b[code]
	if !ok {
		return 0
	}
	return e.Elapsed(now)
}

// restore installs a raw value of a given stored Kind for (scope,
// interval, code), promoting it to the stat's canonical kind if the
// stored kind differs: old saves of KillPoints/FlagPoints as uint64
// load correctly even though this store treats them as int32 today.
func (s *Store) restore(scope Scope, interval Interval, code StatCode, kind Kind, raw int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := newNumericEntry(kind)
	e.setInt64(raw)
	if want := defaultKindFor(code); kind != want {
		e = e.promote(want)
	}
	s.bucket(scope, interval)[code] = e
}

// snapshotAll returns every (code, kind, rawValue) triple stored for
// (scope, interval), for serialization.
func (s *Store) snapshotAll(scope Scope, interval Interval) []rawEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data[bucketKey{scope: scope, interval: interval}]
	if !ok {
		return nil
	}
	out := make([]rawEntry, 0, len(b))
	for code, e := range b {
		out = append(out, rawEntry{code: code, kind: e.kind, raw: e.Int64Value()})
	}
	return out
}

type rawEntry struct {
	code StatCode
	kind Kind
	raw  int64
}

// ScoreBroadcastFields is the four-field snapshot SendUpdates mirrors
// into a player's join packet and sends in a score-update packet.
type ScoreBroadcastFields struct {
	KillPoints int32
	FlagPoints int32
	Kills      uint16
	Deaths     uint16
}

// TakeDirtySnapshot returns the current (Arena, Reset) values for the
// four broadcast fields if any of them is dirty, and clears the dirty
// flags. ok is false if nothing changed since the last snapshot, which
// is what makes calling it twice with no intervening mutation emit
// nothing the second time.
func (s *Store) TakeDirtySnapshot() (fields ScoreBroadcastFields, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return ScoreBroadcastFields{}, false
	}

	b := s.data[bucketKey{scope: Arena, interval: Reset}]
	get := func(code StatCode) int64 {
		if b == nil {
			return 0
		}
		if e, ok := b[code]; ok {
			return e.Int64Value()
		}
		return 0
	}

	fields = ScoreBroadcastFields{
		KillPoints: int32(get(KillPoints)),
		FlagPoints: int32(get(FlagPoints)),
		Kills:      uint16(get(Kills)),
		Deaths:     uint16(get(Deaths)),
	}
	s.dirty = make(map[StatCode]bool)
	return fields, true
}

// ScoreReset zeroes the Reset-interval kill/flag points and kill/death
// counts for scope, leaving every other stat (including running timers)
// untouched. It marks the four fields dirty so the next
// TakeDirtySnapshot emits a reset value.
func (s *Store) ScoreReset(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scopesFor(scope) {
		b := s.bucket(sc, Reset)
		for _, code := range [...]StatCode{KillPoints, FlagPoints, Kills, Deaths} {
			e := b[code]
			if e == nil {
				e = newNumericEntry(defaultKindFor(code))
				b[code] = e
			}
			e.setInt64(0)
			s.markDirtyIfTracked(sc, Reset, code)
		}
	}
}
