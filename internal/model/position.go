package model

// Position is a last-known position snapshot for a player: coordinate,
// bounty, and status flags including safe-zone membership.
type Position struct {
	X, Y      int16
	XVel, YVel int16
	Bounty    int32
	InSafeZone bool
	Antiwarped bool
}

// Freq is a team id. Convention-driven by the enforcer chain; any signed
// 16-bit value is legal, -1 conventionally meaning "no team" for
// ownership fields that need an absent-owner sentinel.
type Freq int16

// NoFreq is the sentinel for "no owning team" on ball/flag ownership
// fields.
const NoFreq Freq = -1

// Mod8 returns the freq modulo 8, used to index the fixed 8-entry
// team-score array. Negative freqs (including NoFreq) wrap into 0..7
// using Euclidean modulo so array indexing never goes out of range.
func (f Freq) Mod8() int {
	m := int(f) % 8
	if m < 0 {
		m += 8
	}
	return m
}
