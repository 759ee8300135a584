// Package player implements the Player Registry: the process-wide table
// of connected players plus the Player record itself. Ownership is
// exclusive to the Registry; other subsystems touch a Player only while
// holding the Registry's lock or while handed a reference during a
// callback fired under that lock.
package player

import (
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/slotdata"
	"github.com/udisondev/ssgo/internal/stats"
)

// ID is a stable numeric player identity, unique for the lifetime of the
// process.
type ID uint32

// Player is exclusively owned by the Registry. Other subsystems read or
// mutate it only while holding the Registry's lock (for iteration) or a
// Registry-issued reference (for single-player operations); see
// Registry.Lock/Unlock.
type Player struct {
	id           ID
	name         string
	endpoint     string
	clientType   string
	admission    string // logged admission token, derived once at Connected

	capsMu sync.RWMutex
	caps   map[string]struct{}

	mu    sync.RWMutex
	arena string
	ship  model.Ship
	freq  model.Freq
	state model.PlayerState
	pos   model.Position

	flagsCarried int
	ballCarried  *int32
	hasCrown     bool
	crownExpire  int64 // unix nanos; only meaningful if hasCrown

	banner []byte

	scoring model.ScoringSnapshot

	Stats *stats.Store

	Slots slotdata.Table
}

func newPlayer(id ID, endpoint, clientType string) *Player {
	return &Player{
		id:         id,
		endpoint:   endpoint,
		clientType: clientType,
		admission:  deriveAdmissionToken(id, endpoint),
		caps:       make(map[string]struct{}),
		state:      model.Connected,
		freq:       model.NoFreq,
		Stats:      stats.NewStore(),
	}
}

// deriveAdmissionToken hashes the connection identity into a short,
// loggable token. It authenticates nothing on its own — the external UDP
// layer owns the real handshake — it only gives operators a stable label
// to correlate log lines for one connection across reconnects of the
// same endpoint.
func deriveAdmissionToken(id ID, endpoint string) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d:%s", id, endpoint)))
	return hex.EncodeToString(sum[:8])
}

func (p *Player) ID() ID                { return p.id }
func (p *Player) Name() string          { return p.name }
func (p *Player) Endpoint() string      { return p.endpoint }
func (p *Player) ClientType() string    { return p.clientType }
func (p *Player) AdmissionToken() string { return p.admission }

// SetName sets the player's display name, established during auth.
func (p *Player) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// State returns the current lifecycle state.
func (p *Player) State() model.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState transitions the player to state s.
func (p *Player) SetState(s model.PlayerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// Arena returns the current arena name, or "" if the player is not in
// one. Callers that need the invariant check should compare against
// State().HasArena().
func (p *Player) Arena() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.arena
}

// SetArena sets the current arena name. Pass "" to clear it.
func (p *Player) SetArena(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arena = name
}

func (p *Player) Ship() model.Ship {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ship
}

func (p *Player) SetShip(s model.Ship) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ship = s
}

func (p *Player) Freq() model.Freq {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.freq
}

func (p *Player) SetFreq(f model.Freq) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freq = f
}

func (p *Player) Position() model.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

func (p *Player) SetPosition(pos model.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
}

// InSafeZone is a convenience read used heavily by the reward formulas.
func (p *Player) InSafeZone() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos.InSafeZone
}

func (p *Player) FlagsCarried() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.flagsCarried
}

func (p *Player) SetFlagsCarried(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flagsCarried = n
}

// BallCarried returns the carried ball id, or false if carrying none.
func (p *Player) BallCarried() (int32, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ballCarried == nil {
		return 0, false
	}
	return *p.ballCarried, true
}

func (p *Player) SetBallCarried(id int32, carrying bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !carrying {
		p.ballCarried = nil
		return
	}
	v := id
	p.ballCarried = &v
}

// HasCrown and CrownExpire implement the KOTH per-player invariant: if
// HasCrown is false, CrownExpire must not be consulted (callers must
// always check HasCrown first — SetCrown(false) clears the expiry too).
func (p *Player) HasCrown() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasCrown
}

// CrownExpire returns the expiry instant (unix nanos). Only meaningful
// when HasCrown() is true.
func (p *Player) CrownExpire() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.crownExpire
}

// SetCrown sets or clears the crown. Setting false always clears
// crownExpire, preserving the invariant "hasCrown=false implies no
// expire-timestamp".
func (p *Player) SetCrown(has bool, expireUnixNano int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasCrown = has
	if !has {
		p.crownExpire = 0
		return
	}
	p.crownExpire = expireUnixNano
}

func (p *Player) Banner() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.banner
}

func (p *Player) SetBanner(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banner = b
}

// ScoringSnapshot returns the last-broadcast score mirror.
func (p *Player) ScoringSnapshot() model.ScoringSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scoring
}

// SetScoringSnapshot overwrites the mirror; called only by Stats/Scoring
// immediately before emitting a score-update packet.
func (p *Player) SetScoringSnapshot(s model.ScoringSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scoring = s
}

// HasCapability reports whether the player's capability set includes
// name (client-advertised feature support).
func (p *Player) HasCapability(name string) bool {
	p.capsMu.RLock()
	defer p.capsMu.RUnlock()
	_, ok := p.caps[name]
	return ok
}

// AddCapability records a client-advertised capability.
func (p *Player) AddCapability(name string) {
	p.capsMu.Lock()
	defer p.capsMu.Unlock()
	p.caps[name] = struct{}{}
}
