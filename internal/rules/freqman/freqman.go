// Package freqman implements the FreqManager enforcer advisor chain:
// ship/freq/lock decisions are polled from every registered Advisor and
// combined (intersection for masks, logical AND for booleans), local
// advisors before parent advisors. Grounded on the policy-gate shape of
// a chain of independent deciders, composed here through the broker's
// generic advisor mechanism rather than a bespoke list.
package freqman

import (
	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
)

// MessageBuffer collects human-readable rejection reasons. A nil
// *MessageBuffer is valid and silently discards Add calls, letting
// callers that don't need a message pass nil without allocating.
type MessageBuffer struct {
	lines []string
}

// Add appends a reason. Safe to call on a nil receiver.
func (m *MessageBuffer) Add(s string) {
	if m == nil {
		return
	}
	m.lines = append(m.lines, s)
}

// Lines returns the collected reasons, or nil if none (or the receiver
// is nil).
func (m *MessageBuffer) Lines() []string {
	if m == nil {
		return nil
	}
	return m.lines
}

// Advisor is consulted on every ship/freq/lock decision. Implementations
// are registered per-arena (or globally) via broker.RegisterAdvisor.
type Advisor interface {
	GetAllowableShips(p *player.Player, ship model.Ship, freq model.Freq, msgs *MessageBuffer) model.ShipMask
	CanChangeToFreq(p *player.Player, newFreq model.Freq, msgs *MessageBuffer) bool
	CanEnterGame(p *player.Player, msgs *MessageBuffer) bool
	IsUnlocked(p *player.Player, msgs *MessageBuffer) bool
}

// Chain polls every Advisor registered on b and its ancestors, local
// first.
type Chain struct {
	b *broker.Broker
}

// NewChain builds a chain rooted at broker b.
func NewChain(b *broker.Broker) Chain { return Chain{b: b} }

// GetAllowableShips intersects every advisor's answer. An empty chain
// allows every ship (AllShips), matching "no restriction configured".
func (c Chain) GetAllowableShips(p *player.Player, ship model.Ship, freq model.Freq, msgs *MessageBuffer) model.ShipMask {
	mask := model.AllShips
	for _, adv := range broker.GetAdvisors[Advisor](c.b) {
		mask = mask.Intersect(adv.GetAllowableShips(p, ship, freq, msgs))
	}
	return mask
}

// CanChangeToFreq is the logical AND of every advisor's answer.
func (c Chain) CanChangeToFreq(p *player.Player, newFreq model.Freq, msgs *MessageBuffer) bool {
	for _, adv := range broker.GetAdvisors[Advisor](c.b) {
		if !adv.CanChangeToFreq(p, newFreq, msgs) {
			return false
		}
	}
	return true
}

// CanEnterGame is the logical AND of every advisor's answer; only
// meaningful when the player is currently a spectator.
func (c Chain) CanEnterGame(p *player.Player, msgs *MessageBuffer) bool {
	for _, adv := range broker.GetAdvisors[Advisor](c.b) {
		if !adv.CanEnterGame(p, msgs) {
			return false
		}
	}
	return true
}

// IsUnlocked is the logical AND of every advisor's answer.
func (c Chain) IsUnlocked(p *player.Player, msgs *MessageBuffer) bool {
	for _, adv := range broker.GetAdvisors[Advisor](c.b) {
		if !adv.IsUnlocked(p, msgs) {
			return false
		}
	}
	return true
}

// EnforcerModule installs the three canonical enforcers (LegalShip,
// ShipChange, and, when the arena is configured locked, LockSpec) on an
// arena's broker at attach time, so Chain.GetAllowableShips/CanChangeToFreq/
// CanEnterGame/IsUnlocked see them via broker.GetAdvisors without any
// rules module needing to import this package's concrete enforcer types
// directly.
type EnforcerModule struct {
	legalShipTok  broker.AdvisorToken
	shipChangeTok broker.AdvisorToken
	lockSpecTok   *broker.AdvisorToken
}

func (m *EnforcerModule) Name() string { return "freqman" }

func (m *EnforcerModule) AttachModule(a *arena.Arena) error {
	cfg := a.Config()
	m.legalShipTok = broker.RegisterAdvisor[Advisor](a.Broker(), NewLegalShip(cfg))
	m.shipChangeTok = broker.RegisterAdvisor[Advisor](a.Broker(), NewShipChange(cfg))
	if cfg.GetBool("Misc:LockArena", false) {
		tok := broker.RegisterAdvisor[Advisor](a.Broker(), LockSpec{})
		m.lockSpecTok = &tok
	}
	return nil
}

func (m *EnforcerModule) Detach(a *arena.Arena) {
	broker.UnregisterAdvisor(m.legalShipTok)
	broker.UnregisterAdvisor(m.shipChangeTok)
	if m.lockSpecTok != nil {
		broker.UnregisterAdvisor(*m.lockSpecTok)
	}
}
