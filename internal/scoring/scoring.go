// Package scoring orchestrates the Player Registry, the per-player
// stats stores, and the wire packet encodings into the score-broadcast
// and interval-reset operations the rest of the server drives: dirty-
// snapshot score updates, score-reset broadcasts, and the persist
// bridge's interval-end reconciliation. Grounded on the teacher's
// transactional-save-plus-broadcast shape in the persistence service,
// generalized here to a send-side orchestration layer with no storage
// dependency of its own.
package scoring

import (
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/stats"
	"github.com/udisondev/ssgo/internal/wire"
)

// SendFunc delivers an encoded packet reliably to one player. Reliable
// delivery is the external transport's concern; this package only
// decides what to send and when.
type SendFunc func(p *player.Player, packet []byte)

// Service ties the Player Registry to a send function so score updates
// and resets can be computed and broadcast.
type Service struct {
	registry *player.Registry
	send     SendFunc
}

// NewService builds a scoring Service.
func NewService(registry *player.Registry, send SendFunc) *Service {
	return &Service{registry: registry, send: send}
}

// SendUpdates scans players (optionally restricted to one arena,
// optionally excluding one player) and reliably sends a score-update
// packet for every player whose broadcast-relevant stats are dirty,
// clearing the dirty flags as it goes.
func (s *Service) SendUpdates(arenaName string, exclude *player.Player) {
	s.registry.Lock()
	defer s.registry.Unlock()

	visit := func(p *player.Player) bool {
		if exclude != nil && p == exclude {
			return true
		}
		fields, dirty := p.Stats.TakeDirtySnapshot()
		if !dirty {
			return true
		}
		packet, err := wire.ScoreUpdate{
			PlayerID:   int16(p.ID()),
			KillPoints: fields.KillPoints,
			FlagPoints: fields.FlagPoints,
			Kills:      fields.Kills,
			Deaths:     fields.Deaths,
		}.Write()
		if err != nil {
			return true
		}
		s.send(p, packet)
		return true
	}

	if arenaName == "" {
		s.registry.ForEach(visit)
		return
	}
	s.registry.InArena(arenaName, visit)
}

// ScoreReset zeroes the Reset-interval broadcast stats for one player
// (if target is non-nil) or for every player in an arena (if target is
// nil), and reliably broadcasts a score-reset packet scoped accordingly.
func (s *Service) ScoreReset(arenaName string, target *player.Player) {
	if target != nil {
		target.Stats.ScoreReset(stats.Arena)
		packet, err := wire.ScoreReset{PlayerID: int16(target.ID())}.Write()
		if err == nil {
			s.send(target, packet)
		}
		return
	}

	s.registry.Lock()
	var affected []*player.Player
	s.registry.InArena(arenaName, func(p *player.Player) bool {
		p.Stats.ScoreReset(stats.Arena)
		affected = append(affected, p)
		return true
	})
	s.registry.Unlock()

	packet, err := wire.ScoreReset{PlayerID: wire.ArenaScoreReset}.Write()
	if err != nil {
		return
	}
	for _, p := range affected {
		s.send(p, packet)
	}
}

// RegisterIntervalEndHandler subscribes to stats.IntervalEndFunc on b
// (typically an arena's broker) and reconciles a Reset-interval end by
// broadcasting ScoreReset for that arena. KOTH and speed end the Game
// interval on their own arena's broker; the persist bridge, once wired,
// fires Reset ends the same way.
func (s *Service) RegisterIntervalEndHandler(b *broker.Broker) broker.CallbackToken {
	return broker.RegisterCallback[stats.IntervalEndFunc](b, func(arenaName string, interval stats.Interval) {
		if interval != stats.Reset {
			return
		}
		s.ScoreReset(arenaName, nil)
	})
}

// StatsReport is the decoded result of a ?stats command: one player's
// stats across the requested scope/interval selection.
type StatsReport struct {
	KillPoints int64
	FlagPoints int64
	Kills      int64
	Deaths     int64
}

// HandleStatsCommand implements `?stats [-g] [forever|game|reset]`:
// global (-g) selects stats.Global, otherwise stats.Arena; the interval
// name selects stats.Forever/Game/Reset, defaulting to Reset.
func (s *Service) HandleStatsCommand(p *player.Player, global bool, interval stats.Interval) StatsReport {
	scope := stats.Arena
	if global {
		scope = stats.Global
	}

	get := func(code stats.StatCode) int64 {
		v, _ := p.Stats.TryGet(scope, interval, code)
		return v
	}
	return StatsReport{
		KillPoints: get(stats.KillPoints),
		FlagPoints: get(stats.FlagPoints),
		Kills:      get(stats.Kills),
		Deaths:     get(stats.Deaths),
	}
}
