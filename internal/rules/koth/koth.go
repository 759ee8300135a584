// Package koth implements King-of-the-Hill: the Stopped/Starting/Running
// state machine, the start-countdown quorum check, per-kill crown
// transfer rules, and win detection including the oldest-crown expiry
// tie-break. Grounded on the teacher's state-machine-plus-countdown-timer
// shape for round-based competitions.
package koth

import (
	"sync"
	"time"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/jackpot"
	"github.com/udisondev/ssgo/internal/slotdata"
	"github.com/udisondev/ssgo/internal/stats"
)

var deathCountSlot = slotdata.Allocate[int]("koth:deathCount")
var crownKillCountSlot = slotdata.Allocate[int]("koth:crownKillCount")

// State is the per-arena KOTH round state.
type State int

const (
	Stopped State = iota
	Starting
	Running
)

// StartedFunc is fired when a round transitions Starting→Running.
type StartedFunc func(arenaName string, initialParticipants []*player.Player)

// WonFunc is fired when a round ends with a winning freq.
type WonFunc func(arenaName string, winners []*player.Player, points int32)

// AnnounceFunc is fired for the countdown/quorum/crown-recovery chat
// notices this module emits to the whole arena.
type AnnounceFunc func(arenaName string, msg string)

// PrivateFunc delivers a chat message to a single player, the same
// per-player shape as scoring.SendFunc/speed.ResultFunc.
type PrivateFunc func(p *player.Player, msg string)

// Module owns one arena's KOTH round.
type Module struct {
	loop    *mainloop.Loop
	jackpot *jackpot.Jackpot
	players func(arenaName string) []*player.Player
	now     func() time.Time

	mu                  sync.Mutex
	cfg                 *config.Arena
	arenaName           string
	broker              *broker.Broker
	state               State
	startAfter          time.Time
	initialParticipants int

	monitorHandle mainloop.Handle
	killToken     broker.CallbackToken
}

// NewModule builds the KOTH module. loop is the shared mainloop the
// countdown/expiry monitor timer runs on.
func NewModule(loop *mainloop.Loop, players func(arenaName string) []*player.Player) *Module {
	return &Module{loop: loop, players: players, now: time.Now}
}

func (m *Module) Name() string { return "koth" }

func (m *Module) AttachModule(a *arena.Arena) error {
	m.mu.Lock()
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.broker = a.Broker()
	m.jackpot = jackpot.ForArena(a)
	m.state = Stopped
	m.mu.Unlock()

	m.killToken = broker.RegisterCallback[player.KillFunc](a.Broker(), m.onKill)

	if m.cfg.GetBool("King:AutoStart", false) {
		m.startCountdown()
	}
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	broker.UnregisterCallback(m.killToken)
	m.loop.ClearByKey(m)
}

func (m *Module) startCountdown() {
	m.mu.Lock()
	m.state = Starting
	m.startAfter = time.Time{}
	m.mu.Unlock()

	const checkPeriod = 100 * mainloop.Tick // once a second
	m.monitorHandle = m.loop.SetTimer(m.monitorTick, checkPeriod, checkPeriod, m)
}

func (m *Module) inShipPlayerCount() int {
	n := 0
	for _, p := range m.players(m.arenaName) {
		if p.Ship() != model.Spectator {
			n++
		}
	}
	return n
}

// monitorTick drives both the Starting countdown and, once Running, the
// periodic crown-expiry/win recheck. Returning true keeps it scheduled
// for as long as the arena lives; Detach clears it by key.
func (m *Module) monitorTick() bool {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case Starting:
		m.checkCountdown()
	case Running:
		m.checkExpiries()
	}
	return true
}

func (m *Module) checkCountdown() {
	minPlayers := m.cfg.GetInt("King:MinPlayers", 2)
	if m.inShipPlayerCount() < minPlayers {
		m.mu.Lock()
		hadCountdown := !m.startAfter.IsZero()
		m.startAfter = time.Time{}
		m.mu.Unlock()
		if hadCountdown {
			m.announce("Not enough players to start King of the Hill.")
		}
		return
	}

	m.mu.Lock()
	if m.startAfter.IsZero() {
		delay := time.Duration(m.cfg.GetInt("King:StartDelay", 3000)) * mainloop.Tick
		m.startAfter = m.now().Add(delay)
		m.mu.Unlock()
		m.announce("King of the Hill starting soon.")
		return
	}
	ready := !m.now().Before(m.startAfter)
	m.mu.Unlock()

	if ready {
		m.beginRound()
	}
}

func (m *Module) beginRound() {
	participants := make([]*player.Player, 0)
	for _, p := range m.players(m.arenaName) {
		if p.Ship() == model.Spectator {
			continue
		}
		participants = append(participants, p)
	}

	expireTime := time.Duration(m.cfg.GetInt("King:ExpireTime", 18000)) * mainloop.Tick
	expireAt := m.now().Add(expireTime).UnixNano()
	for _, p := range participants {
		p.SetCrown(true, expireAt)
		*slotdata.Get(&p.Slots, deathCountSlot) = 0
		*slotdata.Get(&p.Slots, crownKillCountSlot) = 0
	}

	m.mu.Lock()
	m.state = Running
	m.initialParticipants = len(participants)
	m.mu.Unlock()

	started := broker.GetCallback[StartedFunc](m.broker)
	started(m.arenaName, participants)
}

func (m *Module) onKill(killer, victim *player.Player) {
	m.mu.Lock()
	running := m.state == Running
	m.mu.Unlock()
	if !running {
		return
	}

	var justLost []model.Freq

	victimHadCrown := victim.HasCrown()
	if victimHadCrown {
		deaths := slotdata.Get(&victim.Slots, deathCountSlot)
		*deaths++
		if *deaths > m.cfg.GetInt("King:DeathCount", 3) {
			victim.SetCrown(false, 0)
			justLost = append(justLost, victim.Freq())
		}
	}

	killerHadCrown := killer.HasCrown()
	expireTime := time.Duration(m.cfg.GetInt("King:ExpireTime", 18000)) * mainloop.Tick
	switch {
	case killerHadCrown && victimHadCrown:
		killer.SetCrown(true, m.now().Add(expireTime).UnixNano())
	case killerHadCrown && !victimHadCrown:
		bounty := killer.Position().Bounty
		if bounty >= m.cfg.GetInt32("King:NonCrownMinimumBounty", 0) {
			adjust := time.Duration(m.cfg.GetInt("King:NonCrownAdjustTime", 600)) * mainloop.Tick
			expireCeiling := m.now().Add(expireTime).UnixNano()
			newExpire := killer.CrownExpire() + adjust.Nanoseconds()
			if newExpire > expireCeiling {
				newExpire = expireCeiling
			}
			killer.SetCrown(true, newExpire)
		}
	case !killerHadCrown && victimHadCrown:
		ck := slotdata.Get(&killer.Slots, crownKillCountSlot)
		*ck++
		if *ck >= m.cfg.GetInt("King:CrownRecoverKills", 3) {
			killer.SetCrown(true, m.now().Add(expireTime).UnixNano())
			*ck = 0
			*slotdata.Get(&killer.Slots, deathCountSlot) = 0
			m.announce("A crown has been recovered.")
			m.private(killer, "You earned back a crown.")
		}
	}

	m.checkAndResolveWin(justLost)
}

func (m *Module) checkExpiries() {
	now := m.now().UnixNano()
	var justLost []model.Freq
	for _, p := range m.players(m.arenaName) {
		if p.HasCrown() && p.CrownExpire() <= now {
			p.SetCrown(false, 0)
			justLost = append(justLost, p.Freq())
		}
	}
	if len(justLost) > 0 {
		m.checkAndResolveWin(justLost)
	}
}

func (m *Module) crownedPlayers() []*player.Player {
	var out []*player.Player
	for _, p := range m.players(m.arenaName) {
		if p.HasCrown() {
			out = append(out, p)
		}
	}
	return out
}

func sameFreq(freqs []model.Freq) bool {
	if len(freqs) == 0 {
		return false
	}
	for _, f := range freqs[1:] {
		if f != freqs[0] {
			return false
		}
	}
	return true
}

// checkAndResolveWin implements the win-detection recheck: a single
// crowned freq wins outright; if no one holds a crown but everyone who
// just lost one shares a freq, that freq wins; otherwise, if the
// oldest-remaining crown's expire time has passed, it is expired and the
// check retries. A crown whose expire time is still ahead is left in
// place and the round keeps running.
func (m *Module) checkAndResolveWin(justLost []model.Freq) {
	for {
		m.mu.Lock()
		running := m.state == Running
		m.mu.Unlock()
		if !running {
			return
		}

		crowned := m.crownedPlayers()
		if len(crowned) == 0 {
			if sameFreq(justLost) {
				m.declareWin(justLost[0])
			}
			return
		}

		freqSet := make(map[model.Freq]bool)
		for _, p := range crowned {
			freqSet[p.Freq()] = true
		}
		if len(freqSet) == 1 {
			for f := range freqSet {
				m.declareWin(f)
			}
			return
		}

		oldest := crowned[0]
		for _, p := range crowned[1:] {
			if p.CrownExpire() < oldest.CrownExpire() {
				oldest = p
			}
		}
		if oldest.CrownExpire() > m.now().UnixNano() {
			return
		}
		justLost = append(justLost, oldest.Freq())
		oldest.SetCrown(false, 0)
	}
}

func (m *Module) declareWin(winnerFreq model.Freq) {
	var winners []*player.Player
	for _, p := range m.players(m.arenaName) {
		if p.Freq() == winnerFreq {
			winners = append(winners, p)
		}
	}

	m.mu.Lock()
	initial := m.initialParticipants
	m.mu.Unlock()

	points := int32(int64(initial)*int64(initial)*int64(m.cfg.GetInt32("King:RewardFactor", 1000))/1000) + int32(m.jackpot.Get())
	if m.cfg.GetBool("King:SplitPoints", false) && len(winners) > 0 {
		points /= int32(len(winners))
	}

	for _, p := range winners {
		p.Stats.Increment(stats.Arena, stats.Reset, stats.FlagPoints, int64(points))
		p.Stats.Increment(stats.Global, stats.Forever, stats.KothGamesWon, 1)
	}

	m.jackpot.Reset()

	m.announce("King of the Hill has ended.")
	won := broker.GetCallback[WonFunc](m.broker)
	won(m.arenaName, winners, points)

	notify := broker.GetCallback[stats.IntervalEndFunc](m.broker)
	notify(m.arenaName, stats.Game)

	m.mu.Lock()
	m.state = Stopped
	autoStart := m.cfg.GetBool("King:AutoStart", false)
	m.mu.Unlock()

	if autoStart {
		m.startCountdown()
	}
}

func (m *Module) announce(msg string) {
	fn := broker.GetCallback[AnnounceFunc](m.broker)
	fn(m.arenaName, msg)
}

func (m *Module) private(p *player.Player, msg string) {
	fn := broker.GetCallback[PrivateFunc](m.broker)
	fn(p, msg)
}

// State returns the current round state, for ?resetkoth and tests.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HandleResetCommand implements ?resetkoth: forcibly ends the round
// (clearing every crown, no winner declared) and returns to Stopped, or
// Starting again if autostart is configured.
func (m *Module) HandleResetCommand() string {
	for _, p := range m.players(m.arenaName) {
		if p.HasCrown() {
			p.SetCrown(false, 0)
		}
	}

	m.mu.Lock()
	m.state = Stopped
	autoStart := m.cfg.GetBool("King:AutoStart", false)
	m.mu.Unlock()
	m.loop.ClearByKey(m)

	if autoStart {
		m.startCountdown()
	}
	return "King of the Hill has been reset."
}
