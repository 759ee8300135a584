package freqman

import (
	"fmt"
	"time"

	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/slotdata"
)

// shipChangeSlot holds, per player, the instant of their last committed
// ship change. Allocated once at package init so every ShipChange
// enforcer instance (one per arena) shares the same per-player slot —
// the cooldown is a property of the player, not of which arena is
// currently asking.
var shipChangeSlot = slotdata.Allocate[time.Time]("freqman:lastShipChange")

// LegalShip enforces the per-arena and per-freq legal-ship masks.
// It does not restrict freq changes, game entry, or lock state — those
// are the other enforcers' concerns.
type LegalShip struct {
	cfg *config.Arena
}

// NewLegalShip builds the LegalShip enforcer reading masks from cfg.
func NewLegalShip(cfg *config.Arena) *LegalShip { return &LegalShip{cfg: cfg} }

// GetAllowableShips intersects the arena-wide mask with the freq's own
// mask. A freq with no Freq<N>Mask key of its own uses the Freq0Mask
// value; when that is unset too, the freq mask is AllShips
// (defaultArenaValues never sets per-freq keys).
func (e *LegalShip) GetAllowableShips(p *player.Player, ship model.Ship, freq model.Freq, msgs *MessageBuffer) model.ShipMask {
	arenaMask := model.ShipMask(e.cfg.GetInt("LegalShip:ArenaMask", int(model.AllShips)))
	n := int(freq)
	if n < 0 {
		n = 0
	}
	freqKey := config.FreqMaskKey(n)
	defaultFreqMask := e.cfg.GetInt(config.FreqMaskKey(0), int(model.AllShips))
	freqMask := model.ShipMask(e.cfg.GetInt(freqKey, defaultFreqMask))
	result := arenaMask.Intersect(freqMask)
	if result == model.NoShips {
		msgs.Add(fmt.Sprintf("no ships are legal on freq %d in this arena", freq))
	}
	return result
}

func (e *LegalShip) CanChangeToFreq(p *player.Player, newFreq model.Freq, msgs *MessageBuffer) bool {
	return true
}

func (e *LegalShip) CanEnterGame(p *player.Player, msgs *MessageBuffer) bool { return true }

func (e *LegalShip) IsUnlocked(p *player.Player, msgs *MessageBuffer) bool { return true }

// ShipChange enforces the minimum interval between ship changes and the
// antiwarp ship-change restriction. It does not gate freq changes, game
// entry, or lock state.
type ShipChange struct {
	cfg *config.Arena
	now func() time.Time
}

// NewShipChange builds the ShipChange enforcer. now defaults to
// time.Now; tests inject a controllable clock.
func NewShipChange(cfg *config.Arena) *ShipChange {
	return &ShipChange{cfg: cfg, now: time.Now}
}

// CommitShipChange records that p just changed ship, starting the
// cooldown window. Called by the lifecycle engine after a ship-change
// request has been accepted — not by this package, since accepting and
// committing are separate steps owned by the caller.
func (e *ShipChange) CommitShipChange(p *player.Player) {
	*slotdata.Get(&p.Slots, shipChangeSlot) = e.now()
}

func (e *ShipChange) withinCooldown(p *player.Player) bool {
	last := *slotdata.Get(&p.Slots, shipChangeSlot)
	if last.IsZero() {
		return false
	}
	interval := time.Duration(e.cfg.GetInt("Misc:ShipChangeInterval", 500)) * mainloop.Tick
	return e.now().Sub(last) < interval
}

func (e *ShipChange) antiwarpBlocked(p *player.Player) bool {
	if !p.Position().Antiwarped {
		return false
	}
	if p.FlagsCarried() > 0 {
		return e.cfg.GetBool("Misc:AntiwarpFlagShipChange", false)
	}
	return e.cfg.GetBool("Misc:AntiwarpShipChange", true)
}

// GetAllowableShips returns AllShips when the player is free to change;
// when blocked by cooldown or antiwarp, it returns a mask allowing only
// the player's current ship (or NoShips for a spectator, who has no
// ship to "stay" in).
func (e *ShipChange) GetAllowableShips(p *player.Player, ship model.Ship, freq model.Freq, msgs *MessageBuffer) model.ShipMask {
	blocked := e.withinCooldown(p)
	if !blocked && e.antiwarpBlocked(p) {
		blocked = true
		msgs.Add("You are antiwarped!")
	} else if blocked {
		msgs.Add("You must wait before changing ships again.")
	}
	if !blocked {
		return model.AllShips
	}
	current := p.Ship()
	if current == model.Spectator {
		return model.NoShips
	}
	return model.MaskForShip(current)
}

func (e *ShipChange) CanChangeToFreq(p *player.Player, newFreq model.Freq, msgs *MessageBuffer) bool {
	return true
}

func (e *ShipChange) CanEnterGame(p *player.Player, msgs *MessageBuffer) bool { return true }

func (e *ShipChange) IsUnlocked(p *player.Player, msgs *MessageBuffer) bool { return true }

// LockSpec is a total-lock enforcer: every query it answers vetoes the
// action outright. Registering one on an arena or player scope freezes
// ship, freq, and game-entry changes for whatever it's attached to.
type LockSpec struct{}

func (LockSpec) GetAllowableShips(p *player.Player, ship model.Ship, freq model.Freq, msgs *MessageBuffer) model.ShipMask {
	msgs.Add("Ships are locked.")
	return model.NoShips
}

func (LockSpec) CanChangeToFreq(p *player.Player, newFreq model.Freq, msgs *MessageBuffer) bool {
	msgs.Add("Frequency changes are locked.")
	return false
}

func (LockSpec) CanEnterGame(p *player.Player, msgs *MessageBuffer) bool {
	msgs.Add("Game entry is locked.")
	return false
}

func (LockSpec) IsUnlocked(p *player.Player, msgs *MessageBuffer) bool {
	return false
}
