package flag

import (
	"testing"

	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/jackpot"
)

func newTestPlayer(reg *player.Registry, freq model.Freq) *player.Player {
	p := reg.AllocatePlayer("1.2.3.4:1", "vie")
	p.SetFreq(freq)
	return p
}

func newTestModule(values map[string]string, players []*player.Player) *Module {
	cfg := config.NewArenaFromValues(values)
	jp := jackpot.New()
	m := NewModule(func(string) []*player.Player { return players })
	m.jackpot = jp
	m.cfg = cfg
	m.arenaName = "test"
	m.mode = Mode(cfg.GetInt("Flag:FlagMode", 0))
	m.flags = initialFlags(cfg.GetInt("Flag:FlagCount", 3))
	return m
}

func TestCarryAllWinWhenAllFlagsCarriedBySameFreq(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, 0)
	b := newTestPlayer(reg, 0)
	m := newTestModule(map[string]string{"Flag:FlagMode": "0", "Flag:FlagCount": "2"}, []*player.Player{a, b})

	m.onPickup(a, 1)
	m.onPickup(b, 2)

	flags := m.Flags()
	for _, r := range flags {
		if r.State != None {
			t.Fatalf("expected flags reset to None after a win, got %v", r.State)
		}
	}
}

func TestCarryAllNoWinWithMixedFreqs(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, 0)
	b := newTestPlayer(reg, 1)
	m := newTestModule(map[string]string{"Flag:FlagMode": "0", "Flag:FlagCount": "2"}, []*player.Player{a, b})

	m.onPickup(a, 1)
	m.onPickup(b, 2)

	won := m.allCarriedBySingleFreqLocked()
	if won {
		t.Fatal("mixed-freq carry should not be a win")
	}
}

func TestWarzoneWinWhenAllFlagsOwnedBySameFreq(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, 2)
	m := newTestModule(map[string]string{"Flag:FlagMode": "1", "Flag:FlagCount": "2"}, []*player.Player{a})

	m.onFlagOnMap(1, model.Freq(2))
	m.onFlagOnMap(2, model.Freq(2))

	m.mu.Lock()
	owner := m.musicOwner
	m.mu.Unlock()
	if owner != model.NoFreq {
		t.Fatalf("music should stop (and pot reset) once the win fires, musicOwner = %v", owner)
	}

	for _, r := range m.Flags() {
		if r.State != None {
			t.Fatalf("expected reset after warzone win, got %v", r.State)
		}
	}
}

func TestWarzoneMusicStopsOnFlagLoss(t *testing.T) {
	reg := player.NewRegistry()
	a := newTestPlayer(reg, 2)
	m := newTestModule(map[string]string{"Flag:FlagMode": "1", "Flag:FlagReward": "0"}, []*player.Player{a})
	m.flags[1] = &Record{ID: 1, State: OnMap, OwnerFreq: 2}
	m.flags[2] = &Record{ID: 2, State: OnMap, OwnerFreq: 2}
	m.musicOwner = 2

	m.onFlagOnMap(1, model.Freq(3))

	m.mu.Lock()
	owner := m.musicOwner
	m.mu.Unlock()
	if owner != model.NoFreq {
		t.Fatalf("musicOwner = %v; want NoFreq after ownership is no longer uniform", owner)
	}
}

func TestRewardSplitAmongTeam(t *testing.T) {
	m := newTestModule(map[string]string{"Flag:FlagReward": "1000", "Flag:SplitPoints": "1"}, nil)
	got := m.RewardFor(4, 2) // 16 total, split across 2 -> 8
	if got != 8 {
		t.Fatalf("RewardFor = %d; want 8", got)
	}
}

func TestRewardUnsplitGivesFullPotToEachWinner(t *testing.T) {
	m := newTestModule(map[string]string{"Flag:FlagReward": "1000"}, nil)
	got := m.RewardFor(4, 2)
	if got != 16 {
		t.Fatalf("RewardFor = %d; want 16", got)
	}
}
