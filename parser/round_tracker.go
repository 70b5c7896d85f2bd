package parser

import (
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
)

const (
	// DefaultTradeWindowTicks is how soon a death must be avenged to count
	// as traded. 5 seconds at 64 tick.
	DefaultTradeWindowTicks = 320
)

// death is a kill recorded during the current round.
type death struct {
	VictimID uint64
	KillerID uint64
	Side     common.Team
	Tick     int
}

// RoundOutcome is what a finished round contributed to each player.
type RoundOutcome struct {
	// KAST lists players that had a kill, assist, survived or were traded.
	KAST map[uint64]bool

	// Players left alone against at least one enemy, by round result
	ClutchWon  []uint64
	ClutchLost []uint64
}

// RoundTracker follows a single round: who is alive on each side, who
// opened the round, trades and clutch situations.
type RoundTracker struct {
	tradeWindow int

	// Alive players per side
	tAlive  map[uint64]bool
	ctAlive map[uint64]bool

	// Last player standing per side, 0 when none
	tClutcher  uint64
	ctClutcher uint64

	opened      bool
	deaths      []death
	contributed map[uint64]bool
}

// NewRoundTracker creates a tracker with the given trade window.
func NewRoundTracker(tradeWindowTicks int) *RoundTracker {
	if tradeWindowTicks <= 0 {
		tradeWindowTicks = DefaultTradeWindowTicks
	}
	rt := &RoundTracker{tradeWindow: tradeWindowTicks}
	rt.Reset(nil, nil)
	return rt
}

// Reset starts a new round with the given players alive.
func (rt *RoundTracker) Reset(ct, t []uint64) {
	rt.tAlive = make(map[uint64]bool, len(t))
	rt.ctAlive = make(map[uint64]bool, len(ct))
	for _, id := range t {
		rt.tAlive[id] = true
	}
	for _, id := range ct {
		rt.ctAlive[id] = true
	}

	rt.tClutcher = 0
	rt.ctClutcher = 0
	rt.opened = false
	rt.deaths = rt.deaths[:0]
	rt.contributed = make(map[uint64]bool)
}

// KillResult reports what a kill meant for the round.
type KillResult struct {
	// Opening is set for the first enemy kill of the round.
	Opening bool

	// Traded lists teammates of the killer whose deaths this kill avenged.
	Traded []uint64
}

// RecordKill applies a kill. killerID or assisterID may be 0 (world,
// bots, no assist).
func (rt *RoundTracker) RecordKill(killerID, victimID, assisterID uint64, killerSide, victimSide common.Team, tick int) KillResult {
	var result KillResult

	enemyKill := killerID != 0 && killerSide != victimSide
	if enemyKill {
		rt.contributed[killerID] = true

		if !rt.opened {
			rt.opened = true
			result.Opening = true
		}

		// The victim had killed one of ours recently
		for _, d := range rt.deaths {
			if d.KillerID == victimID && d.Side == killerSide && tick-d.Tick <= rt.tradeWindow {
				rt.contributed[d.VictimID] = true
				result.Traded = append(result.Traded, d.VictimID)
			}
		}
	}

	if assisterID != 0 && assisterID != victimID {
		rt.contributed[assisterID] = true
	}

	rt.deaths = append(rt.deaths, death{
		VictimID: victimID,
		KillerID: killerID,
		Side:     victimSide,
		Tick:     tick,
	})

	delete(rt.getAlive(victimSide), victimID)
	rt.checkClutch(victimSide)

	return result
}

// RecordLeave removes a player that disconnected mid-round.
func (rt *RoundTracker) RecordLeave(playerID uint64, side common.Team) {
	delete(rt.getAlive(side), playerID)
	rt.checkClutch(side)
}

// Finish closes the round won by winner.
func (rt *RoundTracker) Finish(winner common.Team) RoundOutcome {
	outcome := RoundOutcome{KAST: make(map[uint64]bool)}

	for id := range rt.contributed {
		outcome.KAST[id] = true
	}
	for _, side := range []common.Team{common.TeamTerrorists, common.TeamCounterTerrorists} {
		for id := range rt.getAlive(side) {
			outcome.KAST[id] = true
		}

		clutcher := rt.getClutcher(side)
		if clutcher == 0 {
			continue
		}
		if side == winner {
			outcome.ClutchWon = append(outcome.ClutchWon, clutcher)
		} else {
			outcome.ClutchLost = append(outcome.ClutchLost, clutcher)
		}
	}

	return outcome
}

// Alive returns how many players are alive on a side.
func (rt *RoundTracker) Alive(side common.Team) int {
	return len(rt.getAlive(side))
}

// checkClutch marks the last player on side as clutching when at least one
// enemy is still alive. A clutch is only ever assigned once per side.
func (rt *RoundTracker) checkClutch(side common.Team) {
	alive := rt.getAlive(side)
	if len(alive) != 1 || rt.getClutcher(side) != 0 {
		return
	}
	if len(rt.getAlive(otherSide(side))) == 0 {
		return
	}
	for id := range alive {
		rt.setClutcher(side, id)
	}
}

// getAlive returns the alive set for a team.
func (rt *RoundTracker) getAlive(side common.Team) map[uint64]bool {
	if side == common.TeamTerrorists {
		return rt.tAlive
	}
	return rt.ctAlive
}

func (rt *RoundTracker) getClutcher(side common.Team) uint64 {
	if side == common.TeamTerrorists {
		return rt.tClutcher
	}
	return rt.ctClutcher
}

func (rt *RoundTracker) setClutcher(side common.Team, id uint64) {
	if side == common.TeamTerrorists {
		rt.tClutcher = id
	} else {
		rt.ctClutcher = id
	}
}

func otherSide(side common.Team) common.Team {
	if side == common.TeamTerrorists {
		return common.TeamCounterTerrorists
	}
	return common.TeamTerrorists
}
