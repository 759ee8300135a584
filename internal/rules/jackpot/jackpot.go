// Package jackpot implements the per-arena jackpot counter: an integer
// pool fed by a percentage of each kill's bounty and drawn down by the
// flag and KOTH reward formulas. Grounded on the simple atomic-counter
// pattern used throughout the corpus for single hot integers.
package jackpot

import (
	"sync/atomic"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/slotdata"
)

// Jackpot is a per-arena integer counter, safe for concurrent use though
// in practice only ever touched from the mainloop goroutine.
type Jackpot struct {
	value atomic.Int64
}

// New creates an empty jackpot.
func New() *Jackpot { return &Jackpot{} }

// Get returns the current pool value.
func (j *Jackpot) Get() int64 { return j.value.Load() }

// Set overwrites the pool value, used on load from persistence.
func (j *Jackpot) Set(v int64) { j.value.Store(v) }

// Add increases the pool by delta (delta may be negative when a reward
// draws the jackpot down).
func (j *Jackpot) Add(delta int64) { j.value.Add(delta) }

// Reset zeroes the pool, typically called alongside a Game-interval end.
func (j *Jackpot) Reset() { j.value.Store(0) }

// OnKill feeds the pool from a kill's bounty per Kill:JackpotBountyPercent,
// expressed in thousandths (bounty * percent / 1000).
func (j *Jackpot) OnKill(bounty int32, jackpotBountyPercentPerMille int32) {
	j.Add(int64(bounty) * int64(jackpotBountyPercentPerMille) / 1000)
}

// Serialize encodes the pool as a 4-byte little-endian integer, the
// persisted representation for the Game interval.
func (j *Jackpot) Serialize() []byte {
	v := uint32(j.Get())
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// Deserialize restores the pool from a 4-byte little-endian blob.
func (j *Jackpot) Deserialize(buf []byte) {
	if len(buf) < 4 {
		return
	}
	v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	j.Set(int64(v))
}

var arenaSlot = slotdata.Allocate[Jackpot]("jackpot:pool")

// ForArena returns the one jackpot pool shared by every module attached
// to a: killpoints feeds it on each kill, flag and KOTH draw it down
// into their win rewards. Allocated lazily from the arena's slot table
// so the three sibling modules agree on a single instance without any
// of them needing to be constructed after the others.
func ForArena(a *arena.Arena) *Jackpot {
	return slotdata.Get(&a.Slots, arenaSlot)
}
