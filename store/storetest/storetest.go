// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/model"
	"cs2-elo/store"
)

// Opener returns a fresh, empty store for one subtest.
type Opener func(t *testing.T) store.Store

type line struct {
	id       string
	old, new float64
}

// match builds a rated match by hand. The store does not judge the
// numbers, it only checks old ratings.
func match(id string, winners, losers []line) (*model.MatchResult, []model.RatingUpdate) {
	m := &model.MatchResult{ID: id, Map: "de_inferno", TeamAScore: 13, TeamBScore: 7}
	var updates []model.RatingUpdate

	for _, side := range []struct {
		lines []line
		won   bool
		team  model.Team
	}{
		{winners, true, model.TeamCT},
		{losers, false, model.TeamT},
	} {
		for _, l := range side.lines {
			stat := model.PlayerMatchStat{PlayerID: l.id, Name: "name-" + l.id, Team: side.team}
			if side.won {
				m.TeamA = append(m.TeamA, stat)
			} else {
				m.TeamB = append(m.TeamB, stat)
			}
			updates = append(updates, model.RatingUpdate{
				PlayerID:     l.id,
				Team:         side.team,
				OldRating:    l.old,
				NewRating:    l.new,
				RatingChange: l.new - l.old,
				Won:          side.won,
			})
		}
	}

	return m, updates
}

// seed applies three matches and leaves the table at:
//
//	p1 1020 1-0, p2 1010 1-0, p5 1010 1-0, p6 990 1-0, p4 990 0-1, p3 970 0-3
func seed(t *testing.T, s store.Store) {
	ctx := context.Background()

	m, u := match("m1",
		[]line{{"p1", 1000, 1020}, {"p2", 1000, 1010}},
		[]line{{"p3", 1000, 990}, {"p4", 1000, 990}})
	require.NoError(t, s.Apply(ctx, m, u))

	m, u = match("m2", []line{{"p5", 1000, 1010}}, []line{{"p3", 990, 980}})
	require.NoError(t, s.Apply(ctx, m, u))

	m, u = match("m3", []line{{"p6", 1000, 990}}, []line{{"p3", 980, 970}})
	require.NoError(t, s.Apply(ctx, m, u))
}

// Run exercises a store implementation.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("UnknownPlayers", func(t *testing.T) {
		s := open(t)

		states, err := s.States(ctx, []string{"nobody"})
		require.NoError(t, err)
		assert.Empty(t, states)

		_, err = s.Player(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)

		history, err := s.History(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, history)

		board, err := s.Leaderboard(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("Apply", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		states, err := s.States(ctx, []string{"p1", "p3", "nobody"})
		require.NoError(t, err)
		assert.Equal(t, map[string]model.PlayerRatingState{
			"p1": {Rating: 1020, GamesPlayed: 1, Wins: 1},
			"p3": {Rating: 970, GamesPlayed: 3, Losses: 3},
		}, states)

		p1, err := s.Player(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "name-p1", p1.Name)
		assert.Equal(t, 1, p1.Rank)
	})

	t.Run("Leaderboard", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		board, err := s.Leaderboard(ctx, 0, 0)
		require.NoError(t, err)

		ids := make([]string, 0, len(board))
		for i, standing := range board {
			ids = append(ids, standing.PlayerID)
			assert.Equal(t, i+1, standing.Rank)
		}
		assert.Equal(t, []string{"p1", "p2", "p5", "p6", "p4", "p3"}, ids)

		page, err := s.Leaderboard(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "p2", page[0].PlayerID)
		assert.Equal(t, 2, page[0].Rank)
		assert.Equal(t, "p5", page[1].PlayerID)
		assert.Equal(t, 3, page[1].Rank)

		past, err := s.Leaderboard(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, past)

		p4, err := s.Player(ctx, "p4")
		require.NoError(t, err)
		assert.Equal(t, 5, p4.Rank)
		assert.Equal(t, 990.0, p4.Rating)
		assert.Equal(t, 1, p4.Losses)
	})

	t.Run("History", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		history, err := s.History(ctx, "p3", 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "m3", history[0].MatchID)
		assert.Equal(t, "m2", history[1].MatchID)
		assert.Equal(t, 980.0, history[0].OldRating)
		assert.Equal(t, 970.0, history[0].NewRating)
		assert.Equal(t, "de_inferno", history[0].Map)
		assert.False(t, history[0].Won)

		all, err := s.History(ctx, "p3", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("DuplicateMatch", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		m, u := match("m1", []line{{"p1", 1020, 1040}}, []line{{"p2", 1010, 990}})
		assert.ErrorIs(t, s.Apply(ctx, m, u), store.ErrDuplicateMatch)

		p1, err := s.Player(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1020.0, p1.Rating)
	})

	t.Run("StaleRating", func(t *testing.T) {
		s := open(t)
		seed(t, s)

		// p2 moved since this was computed
		m, u := match("m4", []line{{"p1", 1020, 1040}}, []line{{"p2", 1000, 980}})
		assert.ErrorIs(t, s.Apply(ctx, m, u), store.ErrStaleRating)

		states, err := s.States(ctx, []string{"p1", "p2"})
		require.NoError(t, err)
		assert.Equal(t, 1020.0, states["p1"].Rating)
		assert.Equal(t, 1, states["p1"].GamesPlayed)

		// A new player must still be at the seed rating
		m, u = match("m4", []line{{"p1", 1020, 1040}}, []line{{"p9", 1200, 1180}})
		assert.ErrorIs(t, s.Apply(ctx, m, u), store.ErrStaleRating)

		_, err = s.Player(ctx, "p9")
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Recomputed against fresh states the match goes through
		m, u = match("m4", []line{{"p1", 1020, 1040}}, []line{{"p2", 1010, 990}})
		require.NoError(t, s.Apply(ctx, m, u))

		states, err = s.States(ctx, []string{"p2"})
		require.NoError(t, err)
		assert.Equal(t, model.PlayerRatingState{Rating: 990, GamesPlayed: 2, Wins: 1, Losses: 1}, states["p2"])
	})

	t.Run("ConcurrentDuplicate", func(t *testing.T) {
		s := open(t)

		const writers = 8
		errs := make(chan error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, u := match("m1", []line{{"p1", 1000, 1020}}, []line{{"p2", 1000, 980}})
				errs <- s.Apply(ctx, m, u)
			}()
		}
		wg.Wait()
		close(errs)

		applied := 0
		for err := range errs {
			if err == nil {
				applied++
				continue
			}
			// Both are conflicts a caller can tell apart from a failure
			assert.True(t, errors.Is(err, store.ErrDuplicateMatch) || errors.Is(err, store.ErrStaleRating), err.Error())
		}
		assert.Equal(t, 1, applied)

		states, err := s.States(ctx, []string{"p1"})
		require.NoError(t, err)
		assert.Equal(t, 1, states["p1"].GamesPlayed)
		assert.Equal(t, 1020.0, states["p1"].Rating)
	})

	t.Run("LongIDs", func(t *testing.T) {
		s := open(t)

		matchID := strings.Repeat("m", 100)
		winner := strings.Repeat("w", 70)
		m, u := match(matchID, []line{{winner, 1000, 1020}}, []line{{"p2", 1000, 980}})
		m.Map = "workshop/" + strings.Repeat("x", 60)
		m.TeamA[0].Name = strings.Repeat("n", 100)
		require.NoError(t, s.Apply(ctx, m, u))

		standing, err := s.Player(ctx, winner)
		require.NoError(t, err)
		assert.Equal(t, m.TeamA[0].Name, standing.Name)

		history, err := s.History(ctx, winner, 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, matchID, history[0].MatchID)
		assert.Equal(t, m.Map, history[0].Map)
	})

	t.Run("NoMatchID", func(t *testing.T) {
		s := open(t)

		m, u := match("", []line{{"p1", 1000, 1020}}, []line{{"p2", 1000, 980}})
		assert.ErrorIs(t, s.Apply(ctx, m, u), store.ErrNoMatchID)
	})
}
