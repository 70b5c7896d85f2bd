// Package service ties the rating engine to a store.
package service

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cs2-elo/model"
	"cs2-elo/rating"
	"cs2-elo/store"
)

const (
	DefaultMaxAttempts   = 3
	DefaultPageSize      = 10
	MaxPageSize          = 100
	DefaultRecentMatches = 5
)

type Options struct {
	// How many times a match is recomputed after ErrStaleRating
	MaxAttempts int

	// Matches shown on a player card
	RecentMatches int
}

// Rater rates matches against a store. Safe for concurrent use.
type Rater struct {
	engine *rating.Engine
	store  store.Store
	opts   Options
	logger zerolog.Logger
}

func NewRater(engine *rating.Engine, st store.Store, opts Options) *Rater {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RecentMatches <= 0 {
		opts.RecentMatches = DefaultRecentMatches
	}
	return &Rater{
		engine: engine,
		store:  st,
		opts:   opts,
		logger: log.With().Str("service", "rater").Logger(),
	}
}

// Result is a rated and stored match.
type Result struct {
	MatchID string               `json:"match_id"`
	Map     string               `json:"map,omitempty"`
	Updates []model.RatingUpdate `json:"updates"`
}

// RateMatch rates a match and stores it. A match without an id gets a
// ULID. When another writer moves one of the players first, the match is
// recomputed from fresh states; invalid input is never retried.
func (r *Rater) RateMatch(ctx context.Context, match *model.MatchResult) (*Result, error) {
	if err := r.engine.Validate(match); err != nil {
		return nil, err
	}

	m := *match
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}

	logger := r.logger.With().Str("match", m.ID).Logger()
	ids := m.PlayerIDs()

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		states, err := r.store.States(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load ratings")
		}

		updates, err := r.engine.ComputeMatchRatings(&m, states)
		if err != nil {
			return nil, err
		}

		err = r.store.Apply(ctx, &m, updates)
		if errors.Is(err, store.ErrStaleRating) {
			logger.Debug().Int("attempt", attempt).Msg("ratings moved, recomputing")
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Info().
			Str("map", m.Map).
			Int("team_a", m.TeamAScore).
			Int("team_b", m.TeamBScore).
			Int("players", len(updates)).
			Msg("rated match")

		return &Result{MatchID: m.ID, Map: m.Map, Updates: updates}, nil
	}

	logger.Warn().Int("attempts", r.opts.MaxAttempts).Msg("gave up on match")
	return nil, errors.Wrapf(store.ErrStaleRating, "gave up after %d attempts", r.opts.MaxAttempts)
}

// Entry is a leaderboard line with its tier.
type Entry struct {
	store.Standing
	Tier    string  `json:"tier"`
	WinRate float64 `json:"win_rate"`
}

// Leaderboard returns one page of standings. Pages start at 1.
func (r *Rater) Leaderboard(ctx context.Context, page, size int) ([]Entry, error) {
	page = max(page, 1)
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	standings, err := r.store.Leaderboard(ctx, (page-1)*size, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load leaderboard")
	}

	entries := make([]Entry, 0, len(standings))
	for _, s := range standings {
		entries = append(entries, Entry{
			Standing: s,
			Tier:     rating.RankFor(s.Rating).Name,
			WinRate:  s.WinRate(),
		})
	}
	return entries, nil
}

// PlayerCard is everything shown for a single player.
type PlayerCard struct {
	Standing store.Standing      `json:"standing"`
	Rank     rating.Rank         `json:"rank"`
	WinRate  float64             `json:"win_rate"`
	Recent   []store.MatchRecord `json:"recent"`
}

// PlayerCard returns a player's standing, tier and recent matches.
func (r *Rater) PlayerCard(ctx context.Context, id string) (*PlayerCard, error) {
	standing, err := r.store.Player(ctx, id)
	if err != nil {
		return nil, err
	}

	recent, err := r.store.History(ctx, id, r.opts.RecentMatches)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load history")
	}

	return &PlayerCard{
		Standing: *standing,
		Rank:     rating.RankFor(standing.Rating),
		WinRate:  standing.WinRate(),
		Recent:   recent,
	}, nil
}
