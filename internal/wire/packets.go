// Package wire encodes the server-to-client packets this core produces:
// score updates, goal notifications, score resets, periodic reward
// bursts, and the speed-game personal result. Encoding only — the UDP
// transport, framing, and encryption that actually puts bytes on the
// wire live outside this module. Modeled on
// internal/gameserver/serverpackets's per-packet Write() ([]byte, error)
// convention.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Opcodes for the packet types this core produces.
const (
	OpScoreUpdate    byte = 0x09
	OpPeriodicReward byte = 0x23
	OpGoal           byte = 0x17
	OpScoreReset     byte = 0x1A
)

// MaxPeriodicRewardPayload is the protocol maximum for a single periodic
// reward packet, header byte included.
const MaxPeriodicRewardPayload = 513

// periodicRewardItemSize is the encoded size of one {freq:i16, points:i16}
// record.
const periodicRewardItemSize = 4

// ScoreUpdate encodes a 0x09 score-update packet.
type ScoreUpdate struct {
	PlayerID   int16
	KillPoints int32
	FlagPoints int32
	Kills      uint16
	Deaths     uint16
}

// Write encodes the packet: opcode, playerId:i16, killPoints:i32,
// flagPoints:i32, kills:u16, deaths:u16.
func (p ScoreUpdate) Write() ([]byte, error) {
	buf := make([]byte, 15)
	buf[0] = OpScoreUpdate
	binary.LittleEndian.PutUint16(buf[1:3], uint16(p.PlayerID))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(p.KillPoints))
	binary.LittleEndian.PutUint32(buf[7:11], uint32(p.FlagPoints))
	binary.LittleEndian.PutUint16(buf[11:13], p.Kills)
	binary.LittleEndian.PutUint16(buf[13:15], p.Deaths)
	return buf, nil
}

// PeriodicRewardItem is one freq's award within a periodic reward burst.
type PeriodicRewardItem struct {
	Freq   int16
	Points int16
}

// PeriodicRewardPackets fragments items into as many 0x23 packets as
// needed to respect MaxPeriodicRewardPayload, preserving item order
// across fragments.
func PeriodicRewardPackets(items []PeriodicRewardItem) ([][]byte, error) {
	if len(items) == 0 {
		return nil, nil
	}

	maxItemsPerPacket := (MaxPeriodicRewardPayload - 1) / periodicRewardItemSize
	if maxItemsPerPacket <= 0 {
		return nil, fmt.Errorf("wire: MaxPeriodicRewardPayload too small for even one item")
	}

	var packets [][]byte
	for start := 0; start < len(items); start += maxItemsPerPacket {
		end := start + maxItemsPerPacket
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		buf := make([]byte, 1+len(chunk)*periodicRewardItemSize)
		buf[0] = OpPeriodicReward
		for i, it := range chunk {
			off := 1 + i*periodicRewardItemSize
			binary.LittleEndian.PutUint16(buf[off:off+2], uint16(it.Freq))
			binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(it.Points))
		}
		packets = append(packets, buf)
	}
	return packets, nil
}

// Goal encodes a 0x17 goal packet.
type Goal struct {
	ScoringFreq int16
	Points      int32
}

func (g Goal) Write() ([]byte, error) {
	buf := make([]byte, 7)
	buf[0] = OpGoal
	binary.LittleEndian.PutUint16(buf[1:3], uint16(g.ScoringFreq))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(g.Points))
	return buf, nil
}

// ScoreReset encodes a 0x1A score-reset packet. PlayerID == ArenaScoreReset
// targets the whole arena.
type ScoreReset struct {
	PlayerID int16
}

// ArenaScoreReset targets every player in the arena.
const ArenaScoreReset int16 = -1

func (r ScoreReset) Write() ([]byte, error) {
	buf := make([]byte, 3)
	buf[0] = OpScoreReset
	binary.LittleEndian.PutUint16(buf[1:3], uint16(r.PlayerID))
	return buf, nil
}

// SpeedStats is the fixed-layout per-player personal result sent at
// speed-game end: top-5 summary plus this player's own placement and
// personal-best comparison. The enclosing opcode belongs to the external
// packet table; this type only lays out the fixed payload fields.
type SpeedStats struct {
	TopPlayerIDs   [5]int16
	TopKillPoints  [5]int32
	PersonalRank   int16
	PersonalPoints int32
	PersonalBest   int32
	IsNewBest      bool
}

func (s SpeedStats) Write() ([]byte, error) {
	buf := make([]byte, 5*2+5*4+2+4+4+1)
	off := 0
	for i := range s.TopPlayerIDs {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(s.TopPlayerIDs[i]))
		off += 2
	}
	for i := range s.TopKillPoints {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(s.TopKillPoints[i]))
		off += 4
	}
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(s.PersonalRank))
	off += 2
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(s.PersonalPoints))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(s.PersonalBest))
	off += 4
	if s.IsNewBest {
		buf[off] = 1
	}
	return buf, nil
}
