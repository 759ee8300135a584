package persist_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/udisondev/ssgo/internal/persist"
	"github.com/udisondev/ssgo/internal/stats"
)

// fakeStore is an in-memory persist.Store used to exercise the
// Registration/Owner contract without a containerized database.
type fakeStore struct {
	regs []persist.Registration
	rows map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string][]byte)}
}

func (s *fakeStore) rowKey(owner persist.Owner, reg persist.Registration) string {
	base := owner.PlayerKey
	if base == "" {
		base = "arena:" + owner.ArenaName
	}
	return fmt.Sprintf("%s|%d|%d|%d", base, reg.Key, reg.Scope, reg.Interval)
}

func (s *fakeStore) Register(reg persist.Registration) error {
	for _, existing := range s.regs {
		if existing.Key == reg.Key && existing.Scope == reg.Scope && existing.Interval == reg.Interval {
			return fmt.Errorf("fakeStore: duplicate registration key %d", reg.Key)
		}
	}
	s.regs = append(s.regs, reg)
	return nil
}

func (s *fakeStore) Save(ctx context.Context, owner persist.Owner) error {
	for _, reg := range s.regs {
		blob, err := reg.Get(ctx, owner)
		if err != nil {
			return err
		}
		s.rows[s.rowKey(owner, reg)] = blob
	}
	return nil
}

func (s *fakeStore) Load(ctx context.Context, owner persist.Owner) error {
	for _, reg := range s.regs {
		blob, ok := s.rows[s.rowKey(owner, reg)]
		if !ok {
			continue
		}
		if err := reg.Set(ctx, owner, blob); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) Clear(ctx context.Context, owner persist.Owner) error {
	for _, reg := range s.regs {
		if err := reg.Clear(ctx, owner); err != nil {
			return err
		}
		delete(s.rows, s.rowKey(owner, reg))
	}
	return nil
}

func (s *fakeStore) NotifyIntervalEnd(ctx context.Context, interval stats.Interval, arenaNames []string) error {
	for _, name := range arenaNames {
		owner := persist.Owner{ArenaName: name}
		for _, reg := range s.regs {
			if reg.Interval != interval || reg.Scope == stats.Global {
				continue
			}
			blob, err := reg.Get(ctx, owner)
			if err != nil {
				return err
			}
			s.rows[s.rowKey(owner, reg)] = blob
		}
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

var _ persist.Store = (*fakeStore)(nil)

// memState models a single module's saved state, keyed by owner.
type memState struct {
	byOwner map[string]int64
}

func newMemState() *memState { return &memState{byOwner: make(map[string]int64)} }

func (m *memState) registration(key int32, scope stats.Scope, interval stats.Interval) persist.Registration {
	return persist.Registration{
		Key:      key,
		Scope:    scope,
		Interval: interval,
		Get: func(ctx context.Context, owner persist.Owner) ([]byte, error) {
			v := m.byOwner[owner.PlayerKey]
			return []byte(fmt.Sprintf("%d", v)), nil
		},
		Set: func(ctx context.Context, owner persist.Owner, data []byte) error {
			var v int64
			fmt.Sscanf(string(data), "%d", &v)
			m.byOwner[owner.PlayerKey] = v
			return nil
		},
		Clear: func(ctx context.Context, owner persist.Owner) error {
			delete(m.byOwner, owner.PlayerKey)
			return nil
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newFakeStore()
	state := newMemState()
	if err := store.Register(state.registration(1, stats.Global, stats.Forever)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	owner := persist.Owner{PlayerKey: "acct-1"}
	state.byOwner["acct-1"] = 42
	if err := store.Save(context.Background(), owner); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state.byOwner["acct-1"] = 0
	if err := store.Load(context.Background(), owner); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := state.byOwner["acct-1"]; got != 42 {
		t.Fatalf("byOwner[acct-1] = %d, want 42", got)
	}
}

func TestLoadSkipsMissingRow(t *testing.T) {
	store := newFakeStore()
	state := newMemState()
	store.Register(state.registration(1, stats.Global, stats.Forever))

	owner := persist.Owner{PlayerKey: "never-saved"}
	state.byOwner["never-saved"] = 7
	if err := store.Load(context.Background(), owner); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := state.byOwner["never-saved"]; got != 7 {
		t.Fatalf("Load overwrote state with no stored row: got %d, want 7 unchanged", got)
	}
}

func TestClearRemovesStoredRow(t *testing.T) {
	store := newFakeStore()
	state := newMemState()
	store.Register(state.registration(1, stats.Global, stats.Forever))

	owner := persist.Owner{PlayerKey: "acct-2"}
	state.byOwner["acct-2"] = 10
	store.Save(context.Background(), owner)

	if err := store.Clear(context.Background(), owner); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := state.byOwner["acct-2"]; ok {
		t.Fatalf("Clear did not remove in-memory state")
	}

	state.byOwner["acct-2"] = 99
	if err := store.Load(context.Background(), owner); err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if got := state.byOwner["acct-2"]; got != 99 {
		t.Fatalf("Load after Clear restored a cleared row: got %d, want 99 unchanged", got)
	}
}

func TestNotifyIntervalEndOnlyMatchesRegisteredInterval(t *testing.T) {
	store := newFakeStore()
	resetState := newMemState()
	gameState := newMemState()
	store.Register(resetState.registration(1, stats.Arena, stats.Reset))
	store.Register(gameState.registration(2, stats.Arena, stats.Game))

	resetState.byOwner[""] = 5
	gameState.byOwner[""] = 9

	if err := store.NotifyIntervalEnd(context.Background(), stats.Reset, []string{"arena1"}); err != nil {
		t.Fatalf("NotifyIntervalEnd: %v", err)
	}

	if _, ok := store.rows[store.rowKey(persist.Owner{ArenaName: "arena1"}, store.regs[0])]; !ok {
		t.Fatalf("Reset-interval registration was not saved on Reset interval end")
	}
	if _, ok := store.rows[store.rowKey(persist.Owner{ArenaName: "arena1"}, store.regs[1])]; ok {
		t.Fatalf("Game-interval registration was saved on a Reset interval end")
	}
}

func TestNotifyIntervalEndSkipsGlobalScope(t *testing.T) {
	store := newFakeStore()
	globalState := newMemState()
	store.Register(globalState.registration(1, stats.Global, stats.Reset))

	if err := store.NotifyIntervalEnd(context.Background(), stats.Reset, []string{"arena1"}); err != nil {
		t.Fatalf("NotifyIntervalEnd: %v", err)
	}
	if _, ok := store.rows[store.rowKey(persist.Owner{ArenaName: "arena1"}, store.regs[0])]; ok {
		t.Fatalf("Global-scoped registration should not be saved via arena-scoped interval end")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	store := newFakeStore()
	state := newMemState()
	reg := state.registration(1, stats.Global, stats.Forever)
	if err := store.Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := store.Register(reg); err == nil {
		t.Fatalf("expected error registering duplicate (key, scope, interval)")
	}
}
