package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/model"
	"cs2-elo/rating"
	"cs2-elo/service"
	"cs2-elo/store"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_E2/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_E2", id)

	_, err = extractSpreadsheetID("https://example.com/not-a-sheet")
	assert.Error(t, err)
}

var entries = []service.Entry{
	{
		Standing: store.Standing{Rank: 1, PlayerID: "76561198000000001", Name: "alice", Rating: 1234.56, GamesPlayed: 3, Wins: 2, Losses: 1},
		Tier:     "Gold I",
		WinRate:  66.666,
	},
	{
		Standing: store.Standing{Rank: 2, PlayerID: "76561198000000002", Rating: 987.04, GamesPlayed: 1, Losses: 1},
		Tier:     "Bronze II",
	},
}

func TestLeaderboardRows(t *testing.T) {
	rows := leaderboardRows(entries)
	require.Len(t, rows, 3)

	assert.Equal(t, leaderboardHeaders, rows[0])
	assert.Equal(t, []interface{}{1, "76561198000000001", "alice", "Gold I", 1234.6, 3, 2, 1, 66.7}, rows[1])
	assert.Equal(t, 987.0, rows[2][4])
}

func TestWriteLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboard(&buf, entries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "alice")
	assert.Contains(t, lines[1], "1234.6")
	assert.Contains(t, lines[1], "2-1")

	// Unnamed players fall back to their id
	assert.Contains(t, lines[2], "76561198000000002")
}

func TestWritePlayerCard(t *testing.T) {
	card := &service.PlayerCard{
		Standing: entries[0].Standing,
		Rank:     rating.RankFor(1234.56),
		WinRate:  66.666,
		Recent: []store.MatchRecord{
			{MatchID: "m3", Map: "de_nuke", Won: true, RatingChange: 12.3, NewRating: 1234.56},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePlayerCard(&buf, card))

	out := buf.String()
	assert.Contains(t, out, "tier     Gold I (35%)")
	assert.Contains(t, out, "next     Gold II in 65 points")
	assert.Contains(t, out, "+12.3")
}

func TestWriteResult(t *testing.T) {
	res := &service.Result{
		MatchID: "01J9Z3",
		Map:     "de_dust2",
		Updates: []model.RatingUpdate{
			{PlayerID: "1", Team: model.TeamCT, Won: true, OldRating: 1000, NewRating: 1025.5, RatingChange: 25.5, PerformanceScore: 1.2, KFactor: 32},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res))
	assert.Contains(t, buf.String(), "match 01J9Z3 on de_dust2")
	assert.Contains(t, buf.String(), "+25.5")
}
