package parser

import (
	"sort"
	"strconv"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/pkg/errors"

	"cs2-elo/model"
)

// ErrNoRounds is returned when a demo contains no completed live round.
var ErrNoRounds = errors.New("no completed rounds")

// Participant is a human player present at the start of a round.
type Participant struct {
	SteamID uint64
	Name    string
}

// Kill is a death as seen by the collector. KillerID and AssisterID are 0
// when absent.
type Kill struct {
	KillerID   uint64
	VictimID   uint64
	AssisterID uint64
	KillerSide common.Team
	VictimSide common.Team
	Headshot   bool
	Tick       int
}

// squad identifies a roster independent of the side it currently plays.
type squad int

const (
	squadA squad = iota // Started on CT
	squadB              // Started on T
)

type tally struct {
	stat  model.PlayerMatchStat
	squad squad
	kast  int
	order int
}

// Collector accumulates per-player match statistics from round events.
type Collector struct {
	tracker *RoundTracker
	players map[uint64]*tally

	inRound bool
	rounds  int
	score   [2]int

	// Which side each squad plays this round
	sides [2]common.Team
}

// NewCollector creates a collector using the given trade window.
func NewCollector(tradeWindowTicks int) *Collector {
	return &Collector{
		tracker: NewRoundTracker(tradeWindowTicks),
		players: make(map[uint64]*tally),
		sides:   [2]common.Team{common.TeamCounterTerrorists, common.TeamTerrorists},
	}
}

// StartRound begins a live round with the players on each side.
func (c *Collector) StartRound(ct, t []Participant) {
	c.alignSides(ct, t)

	ids := func(ps []Participant, side common.Team) []uint64 {
		out := make([]uint64, 0, len(ps))
		for _, p := range ps {
			c.join(p, side).stat.RoundsPlayed++
			out = append(out, p.SteamID)
		}
		return out
	}

	c.tracker.Reset(ids(ct, common.TeamCounterTerrorists), ids(t, common.TeamTerrorists))
	c.inRound = true
}

// alignSides works out which squad is on CT after a side swap by looking
// at where known players are now.
func (c *Collector) alignSides(ct, t []Participant) {
	votes := 0
	for _, p := range ct {
		if tl, ok := c.players[p.SteamID]; ok {
			if tl.squad == squadA {
				votes++
			} else {
				votes--
			}
		}
	}
	for _, p := range t {
		if tl, ok := c.players[p.SteamID]; ok {
			if tl.squad == squadB {
				votes++
			} else {
				votes--
			}
		}
	}

	if votes < 0 {
		c.sides = [2]common.Team{common.TeamTerrorists, common.TeamCounterTerrorists}
	} else if votes > 0 {
		c.sides = [2]common.Team{common.TeamCounterTerrorists, common.TeamTerrorists}
	}
}

func (c *Collector) join(p Participant, side common.Team) *tally {
	if tl, ok := c.players[p.SteamID]; ok {
		if p.Name != "" {
			tl.stat.Name = p.Name
		}
		return tl
	}

	sq := squadA
	if c.sides[squadB] == side {
		sq = squadB
	}
	team := model.TeamCT
	if sq == squadB {
		team = model.TeamT
	}

	tl := &tally{
		stat: model.PlayerMatchStat{
			PlayerID: strconv.FormatUint(p.SteamID, 10),
			Name:     p.Name,
			Team:     team,
		},
		squad: sq,
		order: len(c.players),
	}
	c.players[p.SteamID] = tl
	return tl
}

// Kill records a death during a live round.
func (c *Collector) Kill(k Kill) {
	if !c.inRound {
		return
	}

	result := c.tracker.RecordKill(k.KillerID, k.VictimID, k.AssisterID, k.KillerSide, k.VictimSide, k.Tick)

	if victim, ok := c.players[k.VictimID]; ok {
		victim.stat.Deaths++
		if result.Opening {
			victim.stat.EntryDeaths++
		}
	}

	if killer, ok := c.players[k.KillerID]; ok && k.KillerSide != k.VictimSide {
		killer.stat.Kills++
		if k.Headshot {
			killer.stat.HeadshotKills++
		}
		if result.Opening {
			killer.stat.EntryKills++
		}
	}

	if assister, ok := c.players[k.AssisterID]; ok && k.AssisterID != k.VictimID {
		assister.stat.Assists++
	}
}

// Damage records health damage dealt to an enemy.
func (c *Collector) Damage(attackerID uint64, attackerSide, victimSide common.Team, amount int) {
	if !c.inRound || attackerSide == victimSide || amount <= 0 {
		return
	}
	if attacker, ok := c.players[attackerID]; ok {
		attacker.stat.DamageDealt += amount
	}
}

// Leave records a player leaving mid-round.
func (c *Collector) Leave(playerID uint64, side common.Team) {
	if c.inRound {
		c.tracker.RecordLeave(playerID, side)
	}
}

// EndRound closes the live round. Rounds without a winning side are
// discarded from the score but still count as played.
func (c *Collector) EndRound(winner common.Team) {
	if !c.inRound {
		return
	}
	c.inRound = false
	c.rounds++

	outcome := c.tracker.Finish(winner)
	for id := range outcome.KAST {
		if tl, ok := c.players[id]; ok {
			tl.kast++
		}
	}
	for _, id := range outcome.ClutchWon {
		if tl, ok := c.players[id]; ok {
			tl.stat.ClutchesWon++
		}
	}
	for _, id := range outcome.ClutchLost {
		if tl, ok := c.players[id]; ok {
			tl.stat.ClutchesLost++
		}
	}

	for sq, side := range c.sides {
		if side == winner {
			c.score[sq]++
		}
	}
}

// Rounds returns the number of completed rounds.
func (c *Collector) Rounds() int {
	return c.rounds
}

// Result builds the match. Team A is the squad that started on CT.
func (c *Collector) Result(mapName string) (*model.MatchResult, error) {
	if c.rounds == 0 {
		return nil, ErrNoRounds
	}

	tallies := make([]*tally, 0, len(c.players))
	for _, tl := range c.players {
		tallies = append(tallies, tl)
	}
	sort.Slice(tallies, func(i, j int) bool {
		return tallies[i].order < tallies[j].order
	})

	match := &model.MatchResult{
		Map:        mapName,
		TeamAScore: c.score[squadA],
		TeamBScore: c.score[squadB],
	}
	for _, tl := range tallies {
		stat := tl.stat
		if stat.RoundsPlayed > 0 {
			stat.KAST = min(100, float64(tl.kast)/float64(stat.RoundsPlayed)*100)
		}
		if tl.squad == squadA {
			match.TeamA = append(match.TeamA, stat)
		} else {
			match.TeamB = append(match.TeamB, stat)
		}
	}

	return match, nil
}
