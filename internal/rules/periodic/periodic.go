// Package periodic implements the periodic flag reward: a pass every
// Periodic:RewardDelay ticks over every qualifying freq that awards
// points proportional to flags held, fragmented into wire packets. Grounded on the teacher's
// ticker-driven periodic-payout shape.
package periodic

import (
	"sync"
	"time"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/stats"
	"github.com/udisondev/ssgo/internal/wire"
)

// RewardFunc is fired with the encoded periodic-reward packets for an
// arena, one call per packet (a burst may fragment into several).
type RewardFunc func(arenaName string, packet []byte)

// Module owns one arena's periodic reward pass.
type Module struct {
	players     func(arenaName string) []*player.Player
	flagCount   func(arenaName string, freq model.Freq) int

	mu        sync.Mutex
	cfg       *config.Arena
	arenaName string
	broker    *broker.Broker
	loop      *mainloop.Loop
	running   bool
}

// NewModule builds the periodic-reward module. flagCount reports how
// many flags a freq currently holds in the arena (consulted from the
// flag-game module).
func NewModule(loop *mainloop.Loop, players func(arenaName string) []*player.Player, flagCount func(arenaName string, freq model.Freq) int) *Module {
	return &Module{loop: loop, players: players, flagCount: flagCount}
}

func (m *Module) Name() string { return "periodic" }

func (m *Module) AttachModule(a *arena.Arena) error {
	m.mu.Lock()
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.broker = a.Broker()
	m.mu.Unlock()

	m.Start()
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	m.loop.ClearByKey(m)
}

// Start (re)starts the periodic reward timer at the configured delay.
// AttachModule and HandleResetCommand (?periodicreset) both call this.
func (m *Module) Start() {
	m.loop.ClearByKey(m)

	period := time.Duration(m.cfg.GetInt("Periodic:RewardDelay", 6000)) * mainloop.Tick
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	m.loop.SetTimer(func() bool {
		m.mu.Lock()
		running := m.running
		m.mu.Unlock()
		if !running {
			return false
		}
		m.awardPass()
		return true
	}, period, period, m)
}

// Stop halts the periodic reward timer without resetting per-freq
// state. Implements ?periodicstop.
func (m *Module) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.loop.ClearByKey(m)
}

func (m *Module) eligible(p *player.Player) bool {
	if p.Ship() == model.Spectator && !m.cfg.GetBool("Periodic:IncludeSpectators", false) {
		return false
	}
	if p.InSafeZone() && !m.cfg.GetBool("Periodic:IncludeSafeZones", false) {
		return false
	}
	return true
}

func (m *Module) awardPass() {
	players := m.players(m.arenaName)

	byFreq := make(map[model.Freq][]*player.Player)
	for _, p := range players {
		if !m.eligible(p) {
			continue
		}
		byFreq[p.Freq()] = append(byFreq[p.Freq()], p)
	}

	rewardPoints := m.cfg.GetInt32("Periodic:RewardPoints", 0)
	split := m.cfg.GetBool("Periodic:SplitPoints", false)
	total := len(players)

	var items []wire.PeriodicRewardItem
	for freq, team := range byFreq {
		flags := m.flagCount(m.arenaName, freq)
		if flags <= 0 {
			continue
		}

		var points int32
		if rewardPoints > 0 {
			points = int32(flags) * rewardPoints
		} else {
			points = int32(flags) * -rewardPoints * int32(total)
		}
		if points == 0 {
			continue
		}

		perPlayer := points
		if split && len(team) > 0 {
			perPlayer /= int32(len(team))
		}

		for _, p := range team {
			p.Stats.Increment(stats.Arena, stats.Reset, stats.FlagPoints, int64(perPlayer))
		}

		items = append(items, wire.PeriodicRewardItem{Freq: int16(freq), Points: int16(points)})
	}

	if len(items) == 0 {
		return
	}

	packets, err := wire.PeriodicRewardPackets(items)
	if err != nil {
		return
	}

	emit := broker.GetCallback[RewardFunc](m.broker)
	for _, pkt := range packets {
		emit(m.arenaName, pkt)
	}
}

// HandleRewardCommand implements ?periodicreward: fires one immediate
// award pass without waiting for the next tick.
func (m *Module) HandleRewardCommand() {
	m.awardPass()
}

// HandleResetCommand implements ?periodicreset: restarts the timer at
// the current configured delay (picking up a config reload).
func (m *Module) HandleResetCommand() {
	m.Start()
}

// HandleStopCommand implements ?periodicstop.
func (m *Module) HandleStopCommand() {
	m.Stop()
}

// Running reports whether the periodic timer is currently active.
func (m *Module) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
