// Package store persists player ratings and rated matches.
//
// Every backend applies a match atomically. Apply compares each stored
// rating with the old_rating the engine was given and rejects the whole
// batch with ErrStaleRating when any of them moved, so two matches sharing
// a player can never overwrite each other's update.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"cs2-elo/model"
)

var (
	// ErrNotFound is returned for an unknown player.
	ErrNotFound = errors.New("player not found")

	// ErrStaleRating is returned when a stored rating changed after the
	// states were read. The caller may re-read and recompute.
	ErrStaleRating = errors.New("stored rating changed since it was read")

	// ErrDuplicateMatch is returned when a match id was already applied.
	ErrDuplicateMatch = errors.New("match already applied")

	// ErrNoMatchID is returned by Apply for a match without an id.
	ErrNoMatchID = errors.New("match has no id")
)

// Standing is a player's place on the leaderboard.
type Standing struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// WinRate returns wins as a percentage of games played.
func (s Standing) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// MatchRecord is one player's line in a rated match.
type MatchRecord struct {
	MatchID          string     `json:"match_id"`
	Map              string     `json:"map,omitempty"`
	PlayerID         string     `json:"player_id"`
	Team             model.Team `json:"team,omitempty"`
	Won              bool       `json:"won"`
	OldRating        float64    `json:"old_rating"`
	NewRating        float64    `json:"new_rating"`
	RatingChange     float64    `json:"rating_change"`
	PerformanceScore float64    `json:"performance_score"`
	PlayedAt         time.Time  `json:"played_at"`
}

// Store is implemented by every rating backend.
type Store interface {
	// States returns the stored state of each known id. Unknown players
	// are omitted.
	States(ctx context.Context, ids []string) (map[string]model.PlayerRatingState, error)

	// Apply writes a rated match atomically.
	Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) error

	// Leaderboard lists players by rating, then wins, then id.
	Leaderboard(ctx context.Context, offset, limit int) ([]Standing, error)

	// Player returns one player's standing, or ErrNotFound.
	Player(ctx context.Context, id string) (*Standing, error)

	// History returns a player's most recent matches, newest first.
	History(ctx context.Context, id string, limit int) ([]MatchRecord, error)

	Close() error
}

// CheckApply validates the arguments shared by every Apply.
func CheckApply(match *model.MatchResult, updates []model.RatingUpdate) error {
	if match == nil || match.ID == "" {
		return ErrNoMatchID
	}
	if len(updates) == 0 {
		return errors.New("no rating updates")
	}
	return nil
}

// Records turns a match and its updates into per-player history lines.
func Records(match *model.MatchResult, updates []model.RatingUpdate, playedAt time.Time) []MatchRecord {
	records := make([]MatchRecord, 0, len(updates))
	for _, u := range updates {
		records = append(records, MatchRecord{
			MatchID:          match.ID,
			Map:              match.Map,
			PlayerID:         u.PlayerID,
			Team:             u.Team,
			Won:              u.Won,
			OldRating:        u.OldRating,
			NewRating:        u.NewRating,
			RatingChange:     u.RatingChange,
			PerformanceScore: u.PerformanceScore,
			PlayedAt:         playedAt,
		})
	}
	return records
}

// Names maps player ids to the names reported in a match.
func Names(match *model.MatchResult) map[string]string {
	names := make(map[string]string)
	for _, p := range match.Players() {
		if p.Name != "" {
			names[p.PlayerID] = p.Name
		}
	}
	return names
}

// Ahead reports whether a ranks above b.
func Ahead(a, b Standing) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	return a.PlayerID < b.PlayerID
}
