package freqman

import (
	"testing"
	"time"

	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
)

func newTestPlayer() *player.Player {
	r := player.NewRegistry()
	return r.AllocatePlayer("1.2.3.4:1", "vie")
}

func TestLegalShipIntersectsArenaAndFreqMasks(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{
		"LegalShip:ArenaMask": "3", // Warbird | Javelin
		"LegalShip:Freq0Mask": "1", // Warbird only
	})
	e := NewLegalShip(cfg)
	p := newTestPlayer()

	mask := e.GetAllowableShips(p, model.Warbird, 0, nil)
	if mask != model.MaskForShip(model.Warbird) {
		t.Fatalf("mask = %08b; want Warbird only", mask)
	}
}

func TestShipChangeBlocksWithinCooldown(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{"Misc:ShipChangeInterval": "500"}) // 5s
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewShipChange(cfg)
	e.now = func() time.Time { return now }

	p := newTestPlayer()
	p.SetShip(model.Warbird)
	e.CommitShipChange(p)

	msgs := &MessageBuffer{}
	mask := e.GetAllowableShips(p, model.Javelin, 0, msgs)
	if mask != model.MaskForShip(model.Warbird) {
		t.Fatalf("mask during cooldown = %08b; want Warbird only", mask)
	}
	if len(msgs.Lines()) == 0 {
		t.Fatal("expected a rejection message")
	}

	now = now.Add(6 * time.Second)
	mask = e.GetAllowableShips(p, model.Javelin, 0, nil)
	if mask != model.AllShips {
		t.Fatalf("mask after cooldown = %08b; want AllShips", mask)
	}
}

func TestShipChangeAntiwarpGuard(t *testing.T) {
	cfg := config.NewArenaFromValues(map[string]string{"Misc:AntiwarpShipChange": "1"})
	e := NewShipChange(cfg)
	p := newTestPlayer()
	p.SetShip(model.Warbird)
	pos := p.Position()
	pos.Antiwarped = true
	p.SetPosition(pos)

	msgs := &MessageBuffer{}
	mask := e.GetAllowableShips(p, model.Javelin, 0, msgs)
	if mask != model.MaskForShip(model.Warbird) {
		t.Fatalf("mask while antiwarped = %08b; want Warbird only", mask)
	}
	found := false
	for _, l := range msgs.Lines() {
		if l == "You are antiwarped!" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected antiwarp message, got %v", msgs.Lines())
	}
}

func TestLockSpecVetoesEverything(t *testing.T) {
	var l LockSpec
	p := newTestPlayer()
	if l.GetAllowableShips(p, model.Warbird, 0, nil) != model.NoShips {
		t.Fatal("LockSpec should return NoShips")
	}
	if l.CanChangeToFreq(p, 1, nil) {
		t.Fatal("LockSpec should refuse freq changes")
	}
	if l.CanEnterGame(p, nil) {
		t.Fatal("LockSpec should refuse game entry")
	}
	if l.IsUnlocked(p, nil) {
		t.Fatal("LockSpec should report locked")
	}
}

func TestChainMonotonicity(t *testing.T) {
	b := broker.New("global")
	legal := NewLegalShip(config.NewArenaFromValues(map[string]string{"LegalShip:ArenaMask": "3"}))
	broker.RegisterAdvisor[Advisor](b, legal)
	var lock LockSpec
	broker.RegisterAdvisor[Advisor](b, lock)

	chain := NewChain(b)
	p := newTestPlayer()
	got := chain.GetAllowableShips(p, model.Warbird, 0, nil)

	if !got.IsSubsetOf(legal.GetAllowableShips(p, model.Warbird, 0, nil)) {
		t.Fatal("chain result must be a subset of each individual advisor's result")
	}
	if got != model.NoShips {
		t.Fatalf("chain with a LockSpec advisor present should yield NoShips, got %08b", got)
	}
}
