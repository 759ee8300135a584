// Package arena implements the Arena Manager and the Arena lifecycle
// state machine: a named registry of live arenas, each owning a child
// broker, a configuration handle, a data-slot table, and the set of
// modules attached to it. Grounded on the teacher's registry-of-named-
// entities shape (a map guarded by RWMutex, here applied to arenas
// instead of game zones).
package arena

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/slotdata"
)

// Module is anything the Arena Manager can attach to an arena at
// DoInit2 and detach at DoDestroy1. AttachModule failures are logged and
// skipped. Detach reports no failure; the attachment is released once it
// returns.
type Module interface {
	// Name identifies the module for logging.
	Name() string
	AttachModule(a *Arena) error
	Detach(a *Arena)
}

// Arena is one live game arena.
type Arena struct {
	name   string
	broker *broker.Broker
	config *config.Arena
	Slots  slotdata.Table

	mu      sync.Mutex
	state   model.ArenaState
	modules []Module
}

// Name returns the arena's name.
func (a *Arena) Name() string { return a.name }

// Broker returns the arena's child broker, on which rules modules
// register advisors and callbacks.
func (a *Arena) Broker() *broker.Broker { return a.broker }

// Config returns the arena's resolved configuration handle.
func (a *Arena) Config() *config.Arena { return a.config }

// State returns the current lifecycle state.
func (a *Arena) State() model.ArenaState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Arena) setState(s model.ArenaState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Manager owns every live arena, keyed by name.
type Manager struct {
	global *broker.Broker
	loop   *mainloop.Loop

	basePath      string
	overridesDir  string
	idleThreshold int // ticks an arena may sit empty before reaping
	playerCount   func(arenaName string) int

	factories []func() Module

	mu     sync.RWMutex
	arenas map[string]*Arena
}

// NewManager creates an Arena Manager. playerCount reports how many
// players currently occupy an arena, used by the idle-reap timer; loop
// is the shared mainloop the idle-reap timer and per-arena module timers
// run on.
func NewManager(global *broker.Broker, loop *mainloop.Loop, basePath, overridesDir string, playerCount func(string) int) *Manager {
	return &Manager{
		global:        global,
		loop:          loop,
		basePath:      basePath,
		overridesDir:  overridesDir,
		idleThreshold: 3000, // 30s at one tick = 10ms
		playerCount:   playerCount,
		arenas:        make(map[string]*Arena),
	}
}

// RegisterModule adds a module factory: every arena created from now on
// gets its own freshly constructed Module instance (built by calling
// newMod), so per-arena module state (scores, flag records, timers)
// never leaks between arenas sharing the same module type. Existing
// arenas are unaffected.
func (m *Manager) RegisterModule(newMod func() Module) {
	m.factories = append(m.factories, newMod)
}

// Get returns the arena by name, if live.
func (m *Manager) Get(name string) (*Arena, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[name]
	return a, ok
}

// GetOrCreate returns the named arena, creating and running it through
// DoInit0..Running if it does not yet exist.
func (m *Manager) GetOrCreate(name string) (*Arena, error) {
	m.mu.RLock()
	a, ok := m.arenas[name]
	m.mu.RUnlock()
	if ok {
		return a, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.arenas[name]; ok {
		return a, nil
	}

	a, err := m.create(name)
	if err != nil {
		return nil, err
	}
	m.arenas[name] = a
	return a, nil
}

func (m *Manager) create(name string) (*Arena, error) {
	cfg, err := config.LoadArena(m.basePath, m.overridesDir+"/"+name+".conf")
	if err != nil {
		return nil, fmt.Errorf("arena %q: loading config: %w", name, err)
	}

	a := &Arena{
		name:   name,
		broker: m.global.NewChild(name),
		config: cfg,
		state:  model.DoInit0,
	}

	a.setState(model.DoInit1)
	a.setState(model.DoInit2)
	if err := a.attachModules(m.factories); err != nil {
		slog.Warn("arena: one or more modules failed to attach", "arena", name, "err", err)
	}
	a.setState(model.Running)
	return a, nil
}

// attachModules constructs one fresh Module per factory and runs
// AttachModule on it. A module that fails is skipped (not fatal to the
// arena); every failure is joined into the returned error so the caller
// can log a single summary.
func (a *Arena) attachModules(factories []func() Module) error {
	a.modules = a.modules[:0]
	var errs error
	for _, newMod := range factories {
		mod := newMod()
		if err := mod.AttachModule(a); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("module %q: %w", mod.Name(), err))
			continue
		}
		a.modules = append(a.modules, mod)
	}
	return errs
}

// Reload reapplies configuration and re-announces ConfChanged to
// attached modules without tearing the arena down.
func (m *Manager) Reload(name string) error {
	m.mu.RLock()
	a, ok := m.arenas[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("arena %q: not live", name)
	}

	cfg, err := config.LoadArena(m.basePath, m.overridesDir+"/"+name+".conf")
	if err != nil {
		return fmt.Errorf("arena %q: reloading config: %w", name, err)
	}

	a.mu.Lock()
	a.config = cfg
	prev := a.state
	a.state = model.ConfChanged
	a.mu.Unlock()

	confChanged := broker.GetCallback[func(*Arena)](a.broker)
	confChanged(a)

	a.mu.Lock()
	a.state = prev
	a.mu.Unlock()
	return nil
}

// Destroy runs an arena through DoWriteData..Destroyed and removes it
// from the manager.
func (m *Manager) Destroy(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.arenas[name]
	if !ok {
		return fmt.Errorf("arena %q: not live", name)
	}

	a.setState(model.DoWriteData)
	a.setState(model.DoDestroy1)
	for _, mod := range a.modules {
		mod.Detach(a)
	}
	a.modules = nil
	a.setState(model.DoDestroy2)
	if err := a.broker.Close(); err != nil {
		return fmt.Errorf("arena %q: closing broker: %w", name, err)
	}
	a.setState(model.Destroyed)
	a.Slots.Clear()

	delete(m.arenas, name)
	return nil
}

// StartIdleReap installs the single shared mainloop timer that destroys
// arenas once they have had zero players for idleThreshold ticks (one
// check per second, so idleThreshold/100 consecutive checks) — one timer for the whole manager, not one per arena, so the
// reap policy matches "destroyed when the last player leaves and an
// idle interval elapses" without a timer proliferation.
func (m *Manager) StartIdleReap() {
	idleTicks := make(map[string]int)
	const checkPeriod = 100 * mainloop.Tick // check every second

	m.loop.SetTimer(func() bool {
		m.mu.RLock()
		names := make([]string, 0, len(m.arenas))
		for name := range m.arenas {
			names = append(names, name)
		}
		m.mu.RUnlock()

		for _, name := range names {
			if m.playerCount(name) > 0 {
				delete(idleTicks, name)
				continue
			}
			idleTicks[name]++
			if idleTicks[name] >= m.idleThreshold/100 {
				delete(idleTicks, name)
				_ = m.Destroy(name)
			}
		}
		return true
	}, checkPeriod, checkPeriod, m)
}
