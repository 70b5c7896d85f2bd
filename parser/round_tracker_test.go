package parser

import (
	"testing"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ct = common.TeamCounterTerrorists
	tt = common.TeamTerrorists
)

func TestOpeningKillOnlyOnce(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1, 2}, []uint64{11, 12})

	first := rt.RecordKill(1, 11, 0, ct, tt, 100)
	second := rt.RecordKill(2, 12, 0, ct, tt, 200)

	assert.True(t, first.Opening)
	assert.False(t, second.Opening)
}

func TestTeamKillDoesNotOpen(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1, 2}, []uint64{11})

	assert.False(t, rt.RecordKill(1, 2, 0, ct, ct, 10).Opening)
	assert.True(t, rt.RecordKill(11, 1, 0, tt, ct, 20).Opening)
}

func TestTradeWindow(t *testing.T) {
	rt := NewRoundTracker(320)
	rt.Reset([]uint64{1, 2, 3}, []uint64{11, 12})

	// 11 kills 1, 2 avenges inside the window
	rt.RecordKill(11, 1, 0, tt, ct, 1000)
	res := rt.RecordKill(2, 11, 0, ct, tt, 1300)
	assert.Equal(t, []uint64{1}, res.Traded)

	// 12 kills 2, 3 answers too late
	rt.RecordKill(12, 2, 0, tt, ct, 2000)
	res = rt.RecordKill(3, 12, 0, ct, tt, 2400)
	assert.Empty(t, res.Traded)

	out := rt.Finish(ct)
	assert.True(t, out.KAST[1], "traded")
	assert.True(t, out.KAST[2], "kill")
	assert.True(t, out.KAST[3], "kill and survived")
	assert.True(t, out.KAST[11], "kill")
	assert.True(t, out.KAST[12], "kill")
}

func TestAssistCountsForKAST(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1, 2}, []uint64{11, 12})

	rt.RecordKill(1, 11, 2, ct, tt, 10)
	rt.RecordKill(12, 2, 0, tt, ct, 20)
	rt.RecordKill(12, 1, 0, tt, ct, 2000)

	out := rt.Finish(tt)
	assert.True(t, out.KAST[2])
	assert.True(t, out.KAST[12])
}

func TestClutch(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1, 2, 3}, []uint64{11, 12})

	rt.RecordKill(11, 1, 0, tt, ct, 10)
	rt.RecordKill(12, 2, 0, tt, ct, 20)
	require.Equal(t, 1, rt.Alive(ct))

	// 3 is alone in a 1v2 and wins it
	rt.RecordKill(3, 11, 0, ct, tt, 30)
	rt.RecordKill(3, 12, 0, ct, tt, 40)

	out := rt.Finish(ct)
	assert.Equal(t, []uint64{3}, out.ClutchWon)
	assert.Equal(t, []uint64{12}, out.ClutchLost)
}

func TestNoClutchWithoutEnemies(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset(nil, []uint64{11, 12})

	// World kill leaves 11 alone with nobody to fight
	rt.RecordKill(0, 12, 0, common.TeamUnassigned, tt, 10)

	out := rt.Finish(tt)
	assert.Empty(t, out.ClutchWon)
	assert.Empty(t, out.ClutchLost)
	assert.True(t, out.KAST[11])
}

func TestClutchAssignedOnce(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1, 2}, []uint64{11, 12, 13})

	rt.RecordKill(11, 1, 0, tt, ct, 10)
	rt.RecordKill(2, 11, 0, ct, tt, 20)
	rt.RecordLeave(13, tt)
	rt.RecordKill(2, 12, 0, ct, tt, 30)

	out := rt.Finish(ct)
	// 2 stays the CT clutcher even as the T side thins out
	assert.Equal(t, []uint64{2}, out.ClutchWon)
	assert.Equal(t, []uint64{12}, out.ClutchLost)
}

func TestResetClearsRound(t *testing.T) {
	rt := NewRoundTracker(0)
	rt.Reset([]uint64{1}, []uint64{11})
	rt.RecordKill(1, 11, 0, ct, tt, 10)

	rt.Reset([]uint64{1}, []uint64{11})
	assert.True(t, rt.RecordKill(11, 1, 0, tt, ct, 10).Opening)
	assert.Equal(t, 0, rt.Alive(ct))
	assert.Equal(t, 1, rt.Alive(tt))
}
