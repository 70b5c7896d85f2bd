package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/model"
	"cs2-elo/rating"
	"cs2-elo/store"
)

func fiveVsFive(id string) *model.MatchResult {
	m := &model.MatchResult{ID: id, Map: "de_ancient", TeamAScore: 13, TeamBScore: 9}
	for i := 0; i < 5; i++ {
		m.TeamA = append(m.TeamA, model.PlayerMatchStat{
			PlayerID: fmt.Sprintf("a%d", i), Name: fmt.Sprintf("A%d", i), Team: model.TeamCT,
			Kills: 18, Deaths: 14, DamageDealt: 1900, RoundsPlayed: 22, KAST: 72,
		})
		m.TeamB = append(m.TeamB, model.PlayerMatchStat{
			PlayerID: fmt.Sprintf("b%d", i), Name: fmt.Sprintf("B%d", i), Team: model.TeamT,
			Kills: 14, Deaths: 18, DamageDealt: 1600, RoundsPlayed: 22, KAST: 64,
		})
	}
	return m
}

// racingStore lets another writer move a player right before each of the
// first n Apply calls.
type racingStore struct {
	*store.Memory
	races   int
	applies int
}

func (s *racingStore) Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) error {
	s.applies++
	if s.applies <= s.races {
		states, err := s.States(ctx, []string{"a0"})
		if err != nil {
			return err
		}
		old := model.DefaultRating
		if st, ok := states["a0"]; ok {
			old = st.Rating
		}

		other := &model.MatchResult{
			ID:         fmt.Sprintf("race-%d", s.applies),
			TeamAScore: 13,
			TeamBScore: 0,
			TeamA:      []model.PlayerMatchStat{{PlayerID: "a0"}},
			TeamB:      []model.PlayerMatchStat{{PlayerID: fmt.Sprintf("x%d", s.applies)}},
		}
		err = s.Memory.Apply(ctx, other, []model.RatingUpdate{
			{PlayerID: "a0", OldRating: old, NewRating: old + 10, Won: true},
			{PlayerID: other.TeamB[0].PlayerID, OldRating: model.DefaultRating, NewRating: model.DefaultRating - 10},
		})
		if err != nil {
			return err
		}
	}
	return s.Memory.Apply(ctx, match, updates)
}

func TestRateMatch(t *testing.T) {
	st := store.NewMemory()
	r := NewRater(rating.Default(), st, Options{})
	ctx := context.Background()

	res, err := r.RateMatch(ctx, fiveVsFive("m1"))
	require.NoError(t, err)
	assert.Equal(t, "m1", res.MatchID)
	require.Len(t, res.Updates, 10)

	states, err := st.States(ctx, []string{"a0", "b0"})
	require.NoError(t, err)
	assert.Equal(t, res.Updates[0].NewRating, states["a0"].Rating)
	assert.Equal(t, 1, states["a0"].Wins)
	assert.Equal(t, 1, states["b0"].Losses)

	_, err = r.RateMatch(ctx, fiveVsFive("m1"))
	assert.ErrorIs(t, err, store.ErrDuplicateMatch)
}

func TestRateMatchAssignsULID(t *testing.T) {
	r := NewRater(rating.Default(), store.NewMemory(), Options{})

	match := fiveVsFive("")
	res, err := r.RateMatch(context.Background(), match)
	require.NoError(t, err)

	_, err = ulid.ParseStrict(res.MatchID)
	assert.NoError(t, err)
	assert.Empty(t, match.ID, "caller's match is not modified")
}

func TestRateMatchRecomputesOnStale(t *testing.T) {
	st := &racingStore{Memory: store.NewMemory(), races: 2}
	r := NewRater(rating.Default(), st, Options{MaxAttempts: 3})
	ctx := context.Background()

	res, err := r.RateMatch(ctx, fiveVsFive("m1"))
	require.NoError(t, err)
	assert.Equal(t, 3, st.applies)

	// Computed against the rating left by the two racing writes
	assert.Equal(t, model.DefaultRating+20, res.Updates[0].OldRating)

	states, err := st.States(ctx, []string{"a0"})
	require.NoError(t, err)
	assert.Equal(t, res.Updates[0].NewRating, states["a0"].Rating)
	assert.Equal(t, 3, states["a0"].GamesPlayed)
}

func TestRateMatchGivesUp(t *testing.T) {
	st := &racingStore{Memory: store.NewMemory(), races: 10}
	r := NewRater(rating.Default(), st, Options{MaxAttempts: 2})

	_, err := r.RateMatch(context.Background(), fiveVsFive("m1"))
	assert.ErrorIs(t, err, store.ErrStaleRating)
	assert.Equal(t, 2, st.applies)
}

func TestRateMatchInvalid(t *testing.T) {
	st := &racingStore{Memory: store.NewMemory()}
	r := NewRater(rating.Default(), st, Options{})
	ctx := context.Background()

	tie := fiveVsFive("m1")
	tie.TeamBScore = tie.TeamAScore
	_, err := r.RateMatch(ctx, tie)
	var invalidMatch *rating.InvalidMatchError
	assert.True(t, errors.As(err, &invalidMatch))

	bad := fiveVsFive("m2")
	bad.TeamB[2].KAST = 140
	_, err = r.RateMatch(ctx, bad)
	var invalidStat *rating.InvalidStatError
	require.True(t, errors.As(err, &invalidStat))
	assert.Equal(t, "b2", invalidStat.PlayerID)

	assert.Equal(t, 0, st.applies)
}

func TestLeaderboardAndCard(t *testing.T) {
	st := store.NewMemory()
	r := NewRater(rating.Default(), st, Options{RecentMatches: 1})
	ctx := context.Background()

	_, err := r.RateMatch(ctx, fiveVsFive("m1"))
	require.NoError(t, err)
	_, err = r.RateMatch(ctx, fiveVsFive("m2"))
	require.NoError(t, err)

	board, err := r.Leaderboard(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 100.0, board[0].WinRate)
	assert.Equal(t, rating.RankFor(board[0].Rating).Name, board[0].Tier)

	second, err := r.Leaderboard(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, 4, second[0].Rank)

	card, err := r.PlayerCard(ctx, "b3")
	require.NoError(t, err)
	assert.Equal(t, "B3", card.Standing.Name)
	assert.Equal(t, 2, card.Standing.Losses)
	assert.Equal(t, 0.0, card.WinRate)
	require.Len(t, card.Recent, 1)
	assert.Equal(t, "m2", card.Recent[0].MatchID)

	_, err = r.PlayerCard(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
