package killpoints

import (
	"testing"

	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/jackpot"
	"github.com/udisondev/ssgo/internal/stats"
)

func newTestPlayer(reg *player.Registry, freq model.Freq, bounty int32) *player.Player {
	p := reg.AllocatePlayer("1.2.3.4:1", "vie")
	p.SetFreq(freq)
	pos := p.Position()
	pos.Bounty = bounty
	p.SetPosition(pos)
	return p
}

func TestFixedRewardOverridesBounty(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{"Kill:FixedKillReward": "100"})
	got := Reward(cfg, KillContext{VictimBounty: 500})
	if got != 100 {
		t.Fatalf("Reward = %d; want 100", got)
	}
}

func TestNegativeFixedRewardFallsBackToBounty(t *testing.T) {
	cfg := config.NewArenaFromValues(nil)
	got := Reward(cfg, KillContext{VictimBounty: 42})
	if got != 42 {
		t.Fatalf("Reward = %d; want 42 (bounty fallback)", got)
	}
}

func TestTeamKillYieldsZeroByDefault(t *testing.T) {
	cfg := config.NewArenaFromValues(nil)
	got := Reward(cfg, KillContext{KillerTeamKill: true, VictimBounty: 100})
	if got != 0 {
		t.Fatalf("Reward = %d; want 0 for an unconfigured team-kill", got)
	}
}

func TestTeamKillAllowedWhenConfigured(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{"Misc:TeamKillPoints": "1"})
	got := Reward(cfg, KillContext{KillerTeamKill: true, VictimBounty: 100})
	if got != 100 {
		t.Fatalf("Reward = %d; want 100", got)
	}
}

func TestFlagBonusesAccumulate(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{
		"Kill:FixedKillReward":     "10",
		"Kill:PointsPerKilledFlag": "5",
		"Kill:PointsPerCarriedFlag": "2",
		"Kill:PointsPerTeamFlag":    "1",
	})
	got := Reward(cfg, KillContext{
		VictimFlagsCarried:   2, // +10
		KillerFlagsCarried:   3, // +6
		KillerTeamFlagsOwned: 4, // +4
	})
	if got != 10+10+6+4 {
		t.Fatalf("Reward = %d; want %d", got, 10+10+6+4)
	}
}

func TestOnKillCreditsStatsAndJackpot(t *testing.T) {
	reg := player.NewRegistry()
	killer := newTestPlayer(reg, 0, 10)
	victim := newTestPlayer(reg, 1, 50)

	jp := jackpot.New()
	m := NewModule(func(string, model.Freq) int { return 0 })
	m.jp = jp
	m.cfg = config.NewArenaFromValues(map[string]string{"Kill:JackpotBountyPercent": "100"})
	m.arenaName = "test"

	m.onKill(killer, victim)

	if got, ok := killer.Stats.TryGet(stats.Arena, stats.Reset, stats.KillPoints); !ok || got != 50 {
		t.Fatalf("killer KillPoints = %d, ok=%v; want 50, true", got, ok)
	}
	if got, ok := killer.Stats.TryGet(stats.Arena, stats.Reset, stats.Kills); !ok || got != 1 {
		t.Fatalf("killer Kills = %d, ok=%v; want 1, true", got, ok)
	}
	if got, ok := victim.Stats.TryGet(stats.Arena, stats.Reset, stats.Deaths); !ok || got != 1 {
		t.Fatalf("victim Deaths = %d, ok=%v; want 1, true", got, ok)
	}
	if got := jp.Get(); got != 5 {
		t.Fatalf("jackpot = %d; want 5 (50 bounty * 100 per-mille / 1000)", got)
	}
}

func TestOnKillTeamKillSkipsPointsButStillFeedsJackpot(t *testing.T) {
	reg := player.NewRegistry()
	killer := newTestPlayer(reg, 0, 10)
	victim := newTestPlayer(reg, 0, 50)

	jp := jackpot.New()
	m := NewModule(func(string, model.Freq) int { return 0 })
	m.jp = jp
	m.cfg = config.NewArenaFromValues(map[string]string{"Kill:JackpotBountyPercent": "100"})
	m.arenaName = "test"

	m.onKill(killer, victim)

	if got, ok := killer.Stats.TryGet(stats.Arena, stats.Reset, stats.KillPoints); !ok || got != 0 {
		t.Fatalf("killer KillPoints = %d, ok=%v; want 0 for an unconfigured team-kill", got, ok)
	}
	if got := jp.Get(); got != 5 {
		t.Fatalf("jackpot = %d; want 5, fed regardless of team-kill point suppression", got)
	}
}
