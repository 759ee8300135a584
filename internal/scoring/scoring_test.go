package scoring

import (
	"testing"

	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/stats"
)

func newTestPlayer(reg *player.Registry, arena string) *player.Player {
	p := reg.AllocatePlayer("1.2.3.4:1", "vie")
	p.SetArena(arena)
	return p
}

func TestSendUpdatesSkipsClean(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")

	var sent []*player.Player
	svc := NewService(reg, func(p *player.Player, _ []byte) { sent = append(sent, p) })

	svc.SendUpdates("", nil)
	if len(sent) != 0 {
		t.Fatalf("sent %d updates for a player with no dirty stats; want 0", len(sent))
	}

	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 5)
	svc.SendUpdates("", nil)
	if len(sent) != 1 || sent[0] != a {
		t.Fatalf("sent = %v; want exactly one update for the dirty player", sent)
	}

	sent = nil
	svc.SendUpdates("", nil)
	if len(sent) != 0 {
		t.Fatal("second SendUpdates with no new mutation should send nothing")
	}
}

func TestSendUpdatesExcludesGivenPlayer(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 1)

	var sent []*player.Player
	svc := NewService(reg, func(p *player.Player, _ []byte) { sent = append(sent, p) })
	svc.SendUpdates("", a)

	if len(sent) != 0 {
		t.Fatal("excluded player should not receive an update")
	}
}

func TestSendUpdatesScopesToArena(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	b := newTestPlayer(reg, "other")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 1)
	b.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 1)

	var sent []*player.Player
	svc := NewService(reg, func(p *player.Player, _ []byte) { sent = append(sent, p) })
	svc.ScoreReset("duel", nil)
	svc.SendUpdates("duel", nil)

	for _, p := range sent {
		if p != a {
			t.Fatalf("SendUpdates(\"duel\", ...) should only touch players in duel, got %v", p)
		}
	}
}

func TestScoreResetSingleTarget(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 9)

	var got [][]byte
	svc := NewService(reg, func(_ *player.Player, pkt []byte) { got = append(got, pkt) })
	svc.ScoreReset("duel", a)

	v, _ := a.Stats.TryGet(stats.Arena, stats.Reset, stats.KillPoints)
	if v != 0 {
		t.Fatalf("KillPoints = %d; want 0 after ScoreReset", v)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one score-reset packet, got %d", len(got))
	}
}

func TestIntervalEndHandlerTriggersResetOnResetInterval(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 3)

	b := broker.New("duel")
	svc := NewService(reg, func(*player.Player, []byte) {})
	svc.RegisterIntervalEndHandler(b)

	fire := broker.GetCallback[stats.IntervalEndFunc](b)
	fire("duel", stats.Reset)

	v, _ := a.Stats.TryGet(stats.Arena, stats.Reset, stats.KillPoints)
	if v != 0 {
		t.Fatalf("KillPoints = %d; want 0 after a Reset interval-end notification", v)
	}
}

func TestIntervalEndHandlerIgnoresOtherIntervals(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 3)

	b := broker.New("duel")
	svc := NewService(reg, func(*player.Player, []byte) {})
	svc.RegisterIntervalEndHandler(b)

	fire := broker.GetCallback[stats.IntervalEndFunc](b)
	fire("duel", stats.Game)

	v, _ := a.Stats.TryGet(stats.Arena, stats.Reset, stats.KillPoints)
	if v != 3 {
		t.Fatalf("KillPoints = %d; want unchanged 3 for a Game interval-end", v)
	}
}

func TestHandleStatsCommandReadsRequestedScope(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, "duel")
	a.Stats.Increment(stats.Arena, stats.Reset, stats.KillPoints, 4)
	a.Stats.Increment(stats.Global, stats.Forever, stats.KillPoints, 100)

	svc := NewService(reg, func(*player.Player, []byte) {})

	arenaReport := svc.HandleStatsCommand(a, false, stats.Reset)
	if arenaReport.KillPoints != 4 {
		t.Fatalf("arena KillPoints = %d; want 4", arenaReport.KillPoints)
	}

	globalReport := svc.HandleStatsCommand(a, true, stats.Forever)
	if globalReport.KillPoints != 100 {
		t.Fatalf("global KillPoints = %d; want 100", globalReport.KillPoints)
	}
}
