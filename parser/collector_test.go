package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/model"
)

var (
	alice = Participant{SteamID: 1, Name: "alice"}
	bob   = Participant{SteamID: 2, Name: "bob"}
	carl  = Participant{SteamID: 11, Name: "carl"}
	dave  = Participant{SteamID: 12, Name: "dave"}
	erin  = Participant{SteamID: 3, Name: "erin"}
)

func TestCollectorAcrossSideSwap(t *testing.T) {
	c := NewCollector(320)

	// Round 1: alice wins the round alone
	c.StartRound([]Participant{alice, bob}, []Participant{carl, dave})
	c.Kill(Kill{KillerID: 1, VictimID: 11, KillerSide: ct, VictimSide: tt, Headshot: true, Tick: 100})
	c.Damage(1, ct, tt, 100)
	c.Kill(Kill{KillerID: 1, VictimID: 12, KillerSide: ct, VictimSide: tt, Tick: 200})
	c.Damage(1, ct, tt, 100)
	c.EndRound(ct)

	// Round 2: sides swapped, dave clutches
	c.StartRound([]Participant{carl, dave}, []Participant{alice, bob})
	c.Kill(Kill{KillerID: 11, VictimID: 1, AssisterID: 12, KillerSide: ct, VictimSide: tt, Tick: 100})
	c.Kill(Kill{KillerID: 2, VictimID: 11, KillerSide: tt, VictimSide: ct, Tick: 200})
	c.Kill(Kill{KillerID: 12, VictimID: 2, KillerSide: ct, VictimSide: tt, Tick: 300})
	c.Damage(12, ct, ct, 50)
	c.EndRound(ct)

	// Round 3: erin joins squad A on T, no kills
	c.StartRound([]Participant{carl, dave}, []Participant{alice, bob, erin})
	c.EndRound(tt)

	// Ignored outside a round
	c.Kill(Kill{KillerID: 1, VictimID: 11, KillerSide: tt, VictimSide: ct})
	c.EndRound(ct)

	match, err := c.Result("de_mirage")
	require.NoError(t, err)

	assert.Equal(t, "de_mirage", match.Map)
	assert.Equal(t, 2, match.TeamAScore)
	assert.Equal(t, 1, match.TeamBScore)
	assert.Equal(t, []string{"1", "2", "3", "11", "12"}, match.PlayerIDs())

	byID := make(map[string]model.PlayerMatchStat)
	for _, p := range match.Players() {
		byID[p.PlayerID] = p
	}

	a := byID["1"]
	assert.Equal(t, "alice", a.Name)
	assert.Equal(t, model.TeamCT, a.Team)
	assert.Equal(t, 3, a.RoundsPlayed)
	assert.Equal(t, 2, a.Kills)
	assert.Equal(t, 1, a.HeadshotKills)
	assert.Equal(t, 1, a.Deaths)
	assert.Equal(t, 1, a.EntryKills)
	assert.Equal(t, 1, a.EntryDeaths)
	assert.Equal(t, 200, a.DamageDealt)
	assert.Equal(t, 100.0, a.KAST)

	b := byID["2"]
	assert.Equal(t, 1, b.Kills)
	assert.Equal(t, 1, b.ClutchesLost)
	assert.Equal(t, 100.0, b.KAST)

	carlStat := byID["11"]
	assert.Equal(t, model.TeamT, carlStat.Team)
	assert.Equal(t, 2, carlStat.Deaths)
	assert.Equal(t, 1, carlStat.EntryKills)
	assert.Equal(t, 1, carlStat.EntryDeaths)
	assert.InDelta(t, 200.0/3, carlStat.KAST, 1e-9)

	d := byID["12"]
	assert.Equal(t, 1, d.Assists)
	assert.Equal(t, 1, d.ClutchesWon)
	assert.Equal(t, 0, d.DamageDealt, "team damage")

	e := byID["3"]
	assert.Equal(t, model.TeamCT, e.Team)
	assert.Equal(t, 1, e.RoundsPlayed)
	assert.Equal(t, 100.0, e.KAST)
}

func TestCollectorNoRounds(t *testing.T) {
	c := NewCollector(0)
	c.StartRound([]Participant{alice}, []Participant{carl})

	_, err := c.Result("de_nuke")
	assert.ErrorIs(t, err, ErrNoRounds)
}
