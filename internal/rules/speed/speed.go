// Package speed implements the timed deathmatch mode: a bounded round
// with an incrementally maintained kill-points rank list, a top-5
// summary at round end, and per-player personal-best tracking. Grounded
// on the teacher's timed-round-plus-ranking shape for competitive
// events.
package speed

import (
	"sort"
	"sync"
	"time"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/stats"
	"github.com/udisondev/ssgo/internal/wire"
)

// State is the per-arena speed-game round state.
type State int

const (
	Stopped State = iota
	Running
)

// rankEntry is one player's position in the incrementally maintained
// rank list.
type rankEntry struct {
	playerID player.ID
	points   int64
}

// ResultFunc is fired once per player at round end, carrying their
// encoded personal-result packet payload.
type ResultFunc func(p *player.Player, packet []byte)

// StartedFunc is fired when a round begins.
type StartedFunc func(arenaName string)

// Module owns one arena's speed-game round.
type Module struct {
	loop    *mainloop.Loop
	players func(arenaName string) []*player.Player

	mu        sync.Mutex
	cfg       *config.Arena
	arenaName string
	broker    *broker.Broker
	state     State
	rank      []rankEntry

	killToken broker.CallbackToken
}

// NewModule builds the speed-game module. loop is the shared mainloop
// the round-duration timer runs on.
func NewModule(loop *mainloop.Loop, players func(arenaName string) []*player.Player) *Module {
	return &Module{loop: loop, players: players}
}

func (m *Module) Name() string { return "speed" }

func (m *Module) AttachModule(a *arena.Arena) error {
	m.mu.Lock()
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.broker = a.Broker()
	m.state = Stopped
	m.mu.Unlock()

	m.killToken = broker.RegisterCallback[player.KillFunc](a.Broker(), m.onKill)

	if m.cfg.GetBool("Speed:AutoStart", false) {
		m.Start()
	}
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	broker.UnregisterCallback(m.killToken)
	m.loop.ClearByKey(m)
}

// Start begins a round: clears the rank list and zeroes the Game
// interval's kill/flag points and kill/death counts for every
// participant before scheduling the round-end timer. The zeroing runs as
// a posted mainloop continuation, matching the "asynchronously,
// continuation on mainloop" requirement.
func (m *Module) Start() {
	players := m.players(m.arenaName)

	m.mu.Lock()
	m.state = Running
	m.rank = nil
	m.mu.Unlock()

	m.loop.Post(func() {
		for _, p := range players {
			p.Stats.Set(stats.Arena, stats.Game, stats.KillPoints, 0)
			p.Stats.Set(stats.Arena, stats.Game, stats.FlagPoints, 0)
			p.Stats.Set(stats.Arena, stats.Game, stats.Kills, 0)
			p.Stats.Set(stats.Arena, stats.Game, stats.Deaths, 0)
		}
	})

	duration := time.Duration(m.cfg.GetInt("Speed:GameDuration", 6000)) * mainloop.Tick
	m.loop.SetTimer(func() bool {
		m.End()
		return false
	}, duration, 0, m)

	started := broker.GetCallback[StartedFunc](m.broker)
	started(m.arenaName)
}

func (m *Module) onKill(killer, victim *player.Player) {
	m.mu.Lock()
	running := m.state == Running
	m.mu.Unlock()
	if !running {
		return
	}

	points, _ := killer.Stats.TryGet(stats.Arena, stats.Game, stats.KillPoints)

	m.mu.Lock()
	m.upsertRankLocked(killer.ID(), points)
	m.mu.Unlock()
}

// upsertRankLocked inserts or moves killerID up to reflect its current
// points, keeping the list sorted descending by points.
func (m *Module) upsertRankLocked(id player.ID, points int64) {
	found := false
	for i := range m.rank {
		if m.rank[i].playerID == id {
			m.rank[i].points = points
			found = true
			break
		}
	}
	if !found {
		m.rank = append(m.rank, rankEntry{playerID: id, points: points})
	}
	sort.SliceStable(m.rank, func(i, j int) bool {
		return m.rank[i].points > m.rank[j].points
	})
}

// End builds the top-5 summary, sends every participant a personal
// result packet, records personal bests in the Forever interval, and
// ends the Game interval.
func (m *Module) End() {
	m.mu.Lock()
	rank := make([]rankEntry, len(m.rank))
	copy(rank, m.rank)
	m.state = Stopped
	arenaName := m.arenaName
	b := m.broker
	m.mu.Unlock()

	m.loop.ClearByKey(m)

	var top wire.SpeedStats
	for i := 0; i < 5 && i < len(rank); i++ {
		top.TopPlayerIDs[i] = int16(rank[i].playerID)
		top.TopKillPoints[i] = int32(rank[i].points)
	}

	byID := make(map[player.ID]int64, len(rank))
	rankOf := make(map[player.ID]int, len(rank))
	for i, e := range rank {
		byID[e.playerID] = e.points
		rankOf[e.playerID] = i + 1
	}

	result := broker.GetCallback[ResultFunc](b)
	for _, p := range m.players(arenaName) {
		points := byID[p.ID()]

		prevBest, _ := p.Stats.TryGet(stats.Global, stats.Forever, stats.SpeedBestKillPoints)
		isNew := points > prevBest
		if isNew {
			p.Stats.Set(stats.Global, stats.Forever, stats.SpeedBestKillPoints, points)
		}

		personal := top
		personal.PersonalRank = int16(rankOf[p.ID()])
		personal.PersonalPoints = int32(points)
		personal.PersonalBest = int32(maxInt64(points, prevBest))
		personal.IsNewBest = isNew

		packet, err := personal.Write()
		if err != nil {
			continue
		}
		result(p, packet)
	}

	notify := broker.GetCallback[stats.IntervalEndFunc](b)
	notify(arenaName, stats.Game)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// State returns the current round state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rank returns a snapshot of the current rank list, most points first.
func (m *Module) Rank() []player.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]player.ID, len(m.rank))
	for i, e := range m.rank {
		out[i] = e.playerID
	}
	return out
}

// HandleSpeedStatsCommand implements ?speedstats: the current top-5
// snapshot regardless of whether the round has ended.
func (m *Module) HandleSpeedStatsCommand() []player.ID {
	rank := m.Rank()
	if len(rank) > 5 {
		rank = rank[:5]
	}
	return rank
}

// HandleBestCommand implements ?best: a player's personal-best points
// from the Forever interval.
func (m *Module) HandleBestCommand(p *player.Player) int64 {
	best, _ := p.Stats.TryGet(stats.Global, stats.Forever, stats.SpeedBestKillPoints)
	return best
}
