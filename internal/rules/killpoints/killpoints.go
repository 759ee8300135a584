// Package killpoints computes the kill reward: a fixed amount or the
// victim's bounty, plus per-flag bonuses, gated by configuration and by
// the minimum-bounty and team-kill rules. Grounded on the shape of a
// damage/kill resolution pipeline that hands off to a reward computation
// once a kill is confirmed.
package killpoints

import (
	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/jackpot"
	"github.com/udisondev/ssgo/internal/stats"
)

// KillContext carries the inputs the reward formula needs about one
// kill. It deliberately takes plain values rather than *player.Player so
// this package has no dependency on player/model beyond what's needed
// here.
type KillContext struct {
	KillerTeamKill       bool  // true if killer and victim share a freq
	VictimBounty         int32
	VictimFlagsCarried   int32
	KillerFlagsCarried   int32
	KillerTeamFlagsOwned int32
}

// Reward computes the kill-points award for ctx under cfg. Team-kills
// return 0 unless Misc:TeamKillPoints is set.
func Reward(cfg *config.Arena, ctx KillContext) int32 {
	if ctx.KillerTeamKill && !cfg.GetBool("Misc:TeamKillPoints", false) {
		return 0
	}

	base := cfg.GetInt32("Kill:FixedKillReward", -1)
	if base < 0 {
		base = ctx.VictimBounty
	}

	reward := base
	// The per-killed-flag bonus only applies if the victim was worth at
	// least FlagMinimumBounty — otherwise a throwaway low-bounty carrier
	// would be worth farming purely for the flag bonus.
	if ctx.VictimFlagsCarried > 0 && ctx.VictimBounty >= cfg.GetInt32("Kill:FlagMinimumBounty", 0) {
		reward += cfg.GetInt32("Kill:PointsPerKilledFlag", 0) * ctx.VictimFlagsCarried
	}
	reward += cfg.GetInt32("Kill:PointsPerCarriedFlag", 0) * ctx.KillerFlagsCarried
	reward += cfg.GetInt32("Kill:PointsPerTeamFlag", 0) * ctx.KillerTeamFlagsOwned

	if reward < 0 {
		reward = 0
	}
	return reward
}

// Module is the arena-attached subscriber that turns every confirmed
// kill into the points/kills/deaths stat updates and the jackpot feed:
// the one call site for Reward and jackpot.OnKill, reacting to the
// shared player.KillFunc callback the same way koth/speed do.
type Module struct {
	jp        *jackpot.Jackpot
	flagCount func(arenaName string, freq model.Freq) int

	cfg       *config.Arena
	arenaName string
	broker    *broker.Broker
	killToken broker.CallbackToken
}

// NewModule builds the kill-points module. flagCount reports how many
// flags a freq currently holds, consulted from the flag-game module for
// the PointsPerTeamFlag bonus.
func NewModule(flagCount func(arenaName string, freq model.Freq) int) *Module {
	return &Module{flagCount: flagCount}
}

func (m *Module) Name() string { return "killpoints" }

func (m *Module) AttachModule(a *arena.Arena) error {
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.broker = a.Broker()
	m.jp = jackpot.ForArena(a)
	m.killToken = broker.RegisterCallback[player.KillFunc](a.Broker(), m.onKill)
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	broker.UnregisterCallback(m.killToken)
}

func (m *Module) onKill(killer, victim *player.Player) {
	bounty := victim.Position().Bounty

	ctx := KillContext{
		KillerTeamKill:       killer.Freq() == victim.Freq(),
		VictimBounty:         bounty,
		VictimFlagsCarried:   int32(victim.FlagsCarried()),
		KillerFlagsCarried:   int32(killer.FlagsCarried()),
		KillerTeamFlagsOwned: int32(m.flagCount(m.arenaName, killer.Freq())),
	}
	reward := Reward(m.cfg, ctx)

	killer.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, int64(reward))
	killer.Stats.Increment(stats.Arena, stats.Reset, stats.Kills, 1)
	victim.Stats.Increment(stats.Arena, stats.Reset, stats.Deaths, 1)

	m.jp.OnKill(bounty, m.cfg.GetInt32("Kill:JackpotBountyPercent", 0))
}
