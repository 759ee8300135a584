// Package ball implements soccer/ball-game scoring: the per-arena
// team-score array, steal-vs-absolute goal accounting, the reward
// formula, and win detection. Grounded on the teacher's team-score
// bookkeeping and reset-to-initial pattern used for team competitions.
package ball

import (
	"fmt"
	"sync"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/stats"
)

// Mode is the soccer team layout.
type Mode int

const (
	ModeNone      Mode = 0
	ModeLeftRight Mode = 1
	ModeTopBottom Mode = 2
	ModeQuadrant  Mode = 3
	ModeSide4     Mode = 4
)

func activeTeams(mode Mode) int {
	if mode == ModeQuadrant || mode == ModeSide4 {
		return 4
	}
	return 2
}

// GoalFunc is the broker callback signature fired when a player scores a
// goal into a tile owned by ownerFreq.
type GoalFunc func(scorer *player.Player, ownerFreq model.Freq)

// Module owns one arena's ball-game state.
type Module struct {
	players func(arenaName string) []*player.Player

	mu        sync.Mutex
	cfg       *config.Arena
	arenaName string
	scores    [8]int32
	stealMode bool
	mode      Mode

	cbToken broker.CallbackToken
}

// NewModule builds the ball-game module. players returns the current
// occupants of an arena, used to compute playerCount-based rewards and
// to distribute FlagPoints to teammates. Unlike flag and KOTH, soccer's
// reward formula does not draw on the per-arena jackpot.
func NewModule(players func(arenaName string) []*player.Player) *Module {
	return &Module{players: players}
}

func (m *Module) Name() string { return "ball" }

// AttachModule registers the goal callback and seeds the score array
// from configuration.
func (m *Module) AttachModule(a *arena.Arena) error {
	m.mu.Lock()
	m.cfg = a.Config()
	m.arenaName = a.Name()
	m.mode = Mode(a.Config().GetInt("Soccer:Mode", 0))
	capturePoints := a.Config().GetInt32("Soccer:CapturePoints", -1)
	m.stealMode = capturePoints >= 0
	m.resetScoresLocked(capturePoints)
	m.mu.Unlock()

	m.cbToken = broker.RegisterCallback[GoalFunc](a.Broker(), m.onGoal)
	return nil
}

func (m *Module) Detach(a *arena.Arena) {
	broker.UnregisterCallback(m.cbToken)
}

func (m *Module) resetScoresLocked(capturePoints int32) {
	for i := range m.scores {
		if m.stealMode {
			m.scores[i] = capturePoints
		} else {
			m.scores[i] = 0
		}
	}
}

// Scores returns a snapshot of the 8-entry team-score array.
func (m *Module) Scores() [8]int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores
}

func (m *Module) onGoal(scorer *player.Player, ownerFreq model.Freq) {
	scorerFreq := scorer.Freq()

	m.mu.Lock()
	m.applyGoalLocked(scorerFreq, ownerFreq)
	won, winners := m.checkWinLocked()
	m.mu.Unlock()

	if won {
		m.awardAndReset(winners)
	}
}

// applyGoalLocked mutates the score array for one goal. In steal mode a
// point moves from ownerFreq to scorerFreq unless the owner is already
// at zero (a "null" goal: no transfer). In absolute mode the scorer's
// team gains one point unconditionally.
func (m *Module) applyGoalLocked(scorerFreq, ownerFreq model.Freq) (transferred, nullGoal bool) {
	si := scorerFreq.Mod8()
	if !m.stealMode {
		m.scores[si]++
		return true, false
	}

	oi := ownerFreq.Mod8()
	if m.scores[oi] <= 0 {
		return false, true
	}
	m.scores[oi]--
	m.scores[si]++
	return true, false
}

func (m *Module) checkWinLocked() (won bool, winningTeamIndexes []int) {
	n := activeTeams(m.mode)
	if m.stealMode {
		zeroCount := 0
		var nonZero []int
		for i := 0; i < n; i++ {
			if m.scores[i] == 0 {
				zeroCount++
			} else {
				nonZero = append(nonZero, i)
			}
		}
		if n == 2 && zeroCount == 1 {
			return true, nonZero
		}
		if n == 4 && zeroCount == 3 {
			return true, nonZero
		}
		return false, nil
	}

	capturePoints := m.cfg.GetInt32("Soccer:CapturePoints", -1)
	threshold := capturePoints
	if threshold < 0 {
		threshold = -threshold
	}
	winBy := m.cfg.GetInt32("Soccer:WinBy", 1)

	for i := 0; i < n; i++ {
		if m.scores[i] < threshold {
			continue
		}
		beatsAll := true
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if m.scores[i]-m.scores[j] < winBy {
				beatsAll = false
				break
			}
		}
		if beatsAll {
			return true, []int{i}
		}
	}
	return false, nil
}

// RewardFor computes the FlagPoints award for a single goal. It returns
// 0 if MinPlayers/MinTeams gates fail or the scorer is in a safe zone.
func (m *Module) RewardFor(scorer *player.Player, playerCount, teamCount int) int32 {
	if scorer.InSafeZone() {
		return 0
	}
	minPlayers := m.cfg.GetInt("Soccer:MinPlayers", 0)
	minTeams := m.cfg.GetInt("Soccer:MinTeams", 2)
	if playerCount < minPlayers || teamCount < minTeams {
		return 0
	}

	reward := m.cfg.GetInt32("Soccer:Reward", 1000)
	if reward < 0 {
		return -reward
	}
	return int32(int64(playerCount) * int64(playerCount) * int64(reward) / 1000)
}

func (m *Module) awardAndReset(winningTeamIndexes []int) {
	players := m.players(m.arenaName)
	winners := make(map[int]bool, len(winningTeamIndexes))
	for _, i := range winningTeamIndexes {
		winners[i] = true
	}

	for _, p := range players {
		if !winners[p.Freq().Mod8()] {
			continue
		}
		if p.InSafeZone() {
			continue
		}
		p.Stats.Increment(stats.Arena, stats.Reset, stats.FlagPoints, int64(m.RewardFor(p, len(players), activeTeams(m.mode))))
	}

	m.mu.Lock()
	capturePoints := m.cfg.GetInt32("Soccer:CapturePoints", -1)
	m.resetScoresLocked(capturePoints)
	m.mu.Unlock()
}

// HandleSetScore implements ?setscore: absolute-scoring only, parses up
// to 8 integers, clamping negatives to 0.
func (m *Module) HandleSetScore(values []int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stealMode {
		return fmt.Errorf("ball: ?setscore is only valid in absolute-scoring mode")
	}
	for i := 0; i < len(values) && i < len(m.scores); i++ {
		v := values[i]
		if v < 0 {
			v = 0
		}
		m.scores[i] = v
	}
	return nil
}

// HandleScore implements ?score: a human-readable score line.
func (m *Module) HandleScore() string {
	scores := m.Scores()
	n := activeTeams(m.mode)
	line := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			line += " - "
		}
		line += fmt.Sprintf("%d", scores[i])
	}
	return line
}

// HandleResetGame implements ?resetgame: resets scores to their initial
// configuration and returns the chat notice to emit.
func (m *Module) HandleResetGame() string {
	m.mu.Lock()
	capturePoints := m.cfg.GetInt32("Soccer:CapturePoints", -1)
	m.resetScoresLocked(capturePoints)
	m.mu.Unlock()
	return "The game has been reset."
}
