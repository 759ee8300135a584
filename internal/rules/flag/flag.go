// Package flag implements flag-game scoring in both its carry-all and
// warzone (OwnAllDropped) variants: per-flag state, win detection, the
// reward formula, and the victory-music chat cues. Grounded on the
// teacher's carried-state-plus-per-freq-ownership tracking for
// territory-style objectives.
package flag

import (
	"sync"
	"time"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/jackpot"
	"github.com/udisondev/ssgo/internal/stats"
)

// Mode selects the win-check variant.
type Mode int

const (
	ModeCarryAll      Mode = 0
	ModeOwnAllDropped Mode = 1
)

// State is one flag's position in its state machine. Carry-all flags
// cycle None→OnMap→Carried→OnMap…; warzone (static) flags stay OnMap and
// only their OwnerFreq changes on a claim.
type State int

const (
	None State = iota
	OnMap
	Carried
)

// Record is one flag's tracked state within an arena.
type Record struct {
	ID        int32
	State     State
	OwnerFreq model.Freq
	CarrierID player.ID
	Changed   time.Time
}

// PickupFunc is fired when a player picks up a carry-all flag.
type PickupFunc func(p *player.Player, flagID int32)

// FlagOnMapFunc is fired when a flag is placed or claimed on the map
// with an owning freq (warzone mode) or returns to the map after a drop.
type FlagOnMapFunc func(flagID int32, ownerFreq model.Freq)

// MusicCueFunc is fired to start or stop the looping victory-claim music
// in OwnAllDropped mode.
type MusicCueFunc func(arenaName string, start bool)

// Module owns one arena's flag-game state.
type Module struct {
	jackpot *jackpot.Jackpot
	players func(arenaName string) []*player.Player

	mu          sync.Mutex
	cfg         *config.Arena
	arenaName   string
	broker      *broker.Broker
	mode        Mode
	flags       map[int32]*Record
	musicOwner  model.Freq // freq the music is currently playing for, NoFreq if silent

	pickupToken broker.CallbackToken
	onMapToken  broker.CallbackToken
}

// NewModule builds the flag-game module.
func NewModule(players func(arenaName string) []*player.Player) *Module {
	return &Module{players: players, musicOwner: model.NoFreq}
}

func (m *Module) Name() string { return "flag" }

func (m *Module) AttachModule(a *arena.Arena) error {
	m.mu.Lock()
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.broker = a.Broker()
	m.jackpot = jackpot.ForArena(a)
	m.mode = Mode(a.Config().GetInt("Flag:FlagMode", 0))
	m.flags = initialFlags(a.Config().GetInt("Flag:FlagCount", 3))
	m.musicOwner = model.NoFreq
	m.mu.Unlock()

	m.pickupToken = broker.RegisterCallback[PickupFunc](a.Broker(), m.onPickup)
	m.onMapToken = broker.RegisterCallback[FlagOnMapFunc](a.Broker(), m.onFlagOnMap)
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	broker.UnregisterCallback(m.pickupToken)
	broker.UnregisterCallback(m.onMapToken)
}

// initialFlags pre-populates every flag id 1..count so win/uniformity
// checks range over the arena's true flag count from the start, rather
// than only the flags some caller has happened to touch so far.
func initialFlags(count int) map[int32]*Record {
	flags := make(map[int32]*Record, count)
	for i := 1; i <= count; i++ {
		flags[int32(i)] = &Record{ID: int32(i), OwnerFreq: model.NoFreq}
	}
	return flags
}

func (m *Module) recordLocked(flagID int32) *Record {
	r, ok := m.flags[flagID]
	if !ok {
		r = &Record{ID: flagID, OwnerFreq: model.NoFreq}
		m.flags[flagID] = r
	}
	return r
}

// onPickup handles a carry-all pickup: the flag moves to Carried, owned
// by the picker's freq, and a win check follows immediately.
func (m *Module) onPickup(p *player.Player, flagID int32) {
	if m.mode != ModeCarryAll {
		return
	}

	freq := p.Freq()

	m.mu.Lock()
	rec := m.recordLocked(flagID)
	rec.State = Carried
	rec.CarrierID = p.ID()
	rec.OwnerFreq = freq
	won := m.allCarriedBySingleFreqLocked()
	m.mu.Unlock()

	p.SetFlagsCarried(p.FlagsCarried() + 1)

	if won {
		m.awardAndReset(freq)
	}
}

func (m *Module) allCarriedBySingleFreqLocked() bool {
	if len(m.flags) == 0 {
		return false
	}
	var owner model.Freq = model.NoFreq
	first := true
	for _, rec := range m.flags {
		if rec.State != Carried {
			return false
		}
		if first {
			owner = rec.OwnerFreq
			first = false
			continue
		}
		if rec.OwnerFreq != owner {
			return false
		}
	}
	return true
}

// onFlagOnMap handles a warzone claim (or a carry-all drop-back-to-map):
// the flag's ownership changes while it stays OnMap. In OwnAllDropped
// mode this drives both the win check and the victory-music cue.
func (m *Module) onFlagOnMap(flagID int32, ownerFreq model.Freq) {
	m.mu.Lock()
	rec := m.recordLocked(flagID)
	rec.State = OnMap
	rec.OwnerFreq = ownerFreq
	rec.Changed = time.Time{}

	if m.mode != ModeOwnAllDropped {
		m.mu.Unlock()
		return
	}

	prevMusic := m.musicOwner
	uniform := m.uniformOwnerLocked()
	var startFreq model.Freq = model.NoFreq
	stop := false
	if uniform != model.NoFreq && uniform != prevMusic {
		m.musicOwner = uniform
		startFreq = uniform
	} else if prevMusic != model.NoFreq && uniform == model.NoFreq {
		m.musicOwner = model.NoFreq
		stop = true
	}
	m.mu.Unlock()

	if startFreq != model.NoFreq {
		m.musicCue(true)
		m.awardAndReset(startFreq)
		return
	}
	if stop {
		m.musicCue(false)
	}
}

func (m *Module) uniformOwnerLocked() model.Freq {
	if len(m.flags) == 0 {
		return model.NoFreq
	}
	var owner model.Freq = model.NoFreq
	first := true
	for _, rec := range m.flags {
		if rec.State != OnMap || rec.OwnerFreq == model.NoFreq {
			return model.NoFreq
		}
		if first {
			owner = rec.OwnerFreq
			first = false
			continue
		}
		if rec.OwnerFreq != owner {
			return model.NoFreq
		}
	}
	return owner
}

func (m *Module) musicCue(start bool) {
	if !m.cfg.GetBool("Misc:VictoryMusic", true) {
		return
	}
	cue := broker.GetCallback[MusicCueFunc](m.broker)
	cue(m.arenaName, start)
}

// RewardFor computes the per-player flag-game reward: the shared pot
// divided by team size when Flag:SplitPoints is set, otherwise the full
// pot awarded to every winning player.
func (m *Module) RewardFor(playerCount, teamSize int) int32 {
	base := int32(int64(playerCount)*int64(playerCount)*int64(m.cfg.GetInt32("Flag:FlagReward", 1000))/1000) + int32(m.jackpot.Get())
	if m.cfg.GetBool("Flag:SplitPoints", false) && teamSize > 0 {
		return base / int32(teamSize)
	}
	return base
}

func (m *Module) awardAndReset(winnerFreq model.Freq) {
	players := m.players(m.arenaName)
	teamSize := 0
	for _, p := range players {
		if p.Freq() == winnerFreq {
			teamSize++
		}
	}
	reward := m.RewardFor(len(players), teamSize)

	for _, p := range players {
		if p.Freq() != winnerFreq {
			continue
		}
		p.Stats.Increment(stats.Arena, stats.Reset, stats.FlagPoints, int64(reward))
	}

	m.mu.Lock()
	for _, rec := range m.flags {
		rec.State = None
		rec.OwnerFreq = model.NoFreq
		rec.CarrierID = 0
	}
	m.musicOwner = model.NoFreq
	arenaName := m.arenaName
	b := m.broker
	m.mu.Unlock()

	m.jackpot.Reset()

	notify := broker.GetCallback[stats.IntervalEndFunc](b)
	notify(arenaName, stats.Game)
}

// Flags returns a snapshot of every tracked flag's state.
func (m *Module) Flags() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.flags))
	for _, rec := range m.flags {
		out = append(out, *rec)
	}
	return out
}
