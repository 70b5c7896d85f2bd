// Package pgstore keeps ratings in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"cs2-elo/model"
	"cs2-elo/store"
)

//go:embed schema.sql
var schema string

// Options size the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Store struct {
	db *sql.DB
}

// Open connects to dsn and makes sure the schema exists.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize database schema")
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Debug().Msg("postgres connected")
	return &Store{db: db}, nil
}

func (s *Store) States(ctx context.Context, ids []string) (map[string]model.PlayerRatingState, error) {
	states := make(map[string]model.PlayerRatingState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rating, games_played, wins, losses FROM players WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load players")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			state model.PlayerRatingState
		)
		if err := rows.Scan(&id, &state.Rating, &state.GamesPlayed, &state.Wins, &state.Losses); err != nil {
			return nil, err
		}
		states[id] = state
	}
	return states, rows.Err()
}

func (s *Store) Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) (err error) {
	if err := store.CheckApply(match, updates); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO matches (id, map, team_a_score, team_b_score) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		match.ID, match.Map, match.TeamAScore, match.TeamBScore)
	if err != nil {
		return errors.Wrap(err, "failed to record match")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrDuplicateMatch
	}

	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.PlayerID)
	}

	// Lock every known player of the match until commit
	current := make(map[string]float64, len(ids))
	rows, err := tx.QueryContext(ctx,
		`SELECT id, rating FROM players WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "failed to lock players")
	}
	for rows.Next() {
		var (
			id     string
			rating float64
		)
		if err = rows.Scan(&id, &rating); err != nil {
			rows.Close()
			return err
		}
		current[id] = rating
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	names := store.Names(match)
	for _, u := range updates {
		if err = applyUpdate(ctx, tx, u, names[u.PlayerID], current); err != nil {
			return err
		}
	}

	for _, r := range store.Records(match, updates, time.Now()) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO player_matches
			 (match_id, player_id, team, won, old_rating, new_rating, rating_change, performance_score)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.MatchID, r.PlayerID, string(r.Team), r.Won, r.OldRating, r.NewRating, r.RatingChange, r.PerformanceScore)
		if err != nil {
			return errors.Wrap(err, "failed to record match history")
		}
	}

	return tx.Commit()
}

func applyUpdate(ctx context.Context, tx *sql.Tx, u model.RatingUpdate, name string, current map[string]float64) error {
	wins, losses := 0, 1
	if u.Won {
		wins, losses = 1, 0
	}

	rating, known := current[u.PlayerID]
	if known {
		if rating != u.OldRating {
			return store.ErrStaleRating
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE players SET rating = $2, games_played = games_played + 1,
			 wins = wins + $3, losses = losses + $4,
			 name = COALESCE(NULLIF($5, ''), name), updated_at = now()
			 WHERE id = $1`,
			u.PlayerID, u.NewRating, wins, losses, name)
		return errors.Wrap(err, "failed to update player")
	}

	if u.OldRating != model.DefaultRating {
		return store.ErrStaleRating
	}

	// Someone else may have created the player since we locked
	res, err := tx.ExecContext(ctx,
		`INSERT INTO players (id, name, rating, games_played, wins, losses)
		 VALUES ($1, $2, $3, 1, $4, $5) ON CONFLICT (id) DO NOTHING`,
		u.PlayerID, name, u.NewRating, wins, losses)
	if err != nil {
		return errors.Wrap(err, "failed to create player")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrStaleRating
	}
	return nil
}

const standingColumns = `id, name, rating, games_played, wins, losses`

func scanStanding(row interface{ Scan(...any) error }) (store.Standing, error) {
	var s store.Standing
	err := row.Scan(&s.PlayerID, &s.Name, &s.Rating, &s.GamesPlayed, &s.Wins, &s.Losses)
	return s, err
}

func (s *Store) Leaderboard(ctx context.Context, offset, limit int) ([]store.Standing, error) {
	offset = max(offset, 0)

	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+standingColumns+` FROM players
		 ORDER BY rating DESC, wins DESC, id ASC
		 LIMIT $1 OFFSET $2`, lim, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch leaderboard")
	}
	defer rows.Close()

	standings := []store.Standing{}
	for rows.Next() {
		standing, err := scanStanding(rows)
		if err != nil {
			return nil, err
		}
		standing.Rank = offset + len(standings) + 1
		standings = append(standings, standing)
	}
	return standings, rows.Err()
}

func (s *Store) Player(ctx context.Context, id string) (*store.Standing, error) {
	standing, err := scanStanding(s.db.QueryRowContext(ctx,
		`SELECT `+standingColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var ahead int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players
		 WHERE rating > $1 OR (rating = $1 AND wins > $2) OR (rating = $1 AND wins = $2 AND id < $3)`,
		standing.Rating, standing.Wins, standing.PlayerID).Scan(&ahead)
	if err != nil {
		return nil, err
	}

	standing.Rank = ahead + 1
	return &standing, nil
}

func (s *Store) History(ctx context.Context, id string, limit int) ([]store.MatchRecord, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pm.match_id, m.map, pm.player_id, pm.team, pm.won,
		        pm.old_rating, pm.new_rating, pm.rating_change, pm.performance_score, pm.created_at
		 FROM player_matches pm JOIN matches m ON m.id = pm.match_id
		 WHERE pm.player_id = $1
		 ORDER BY pm.id DESC
		 LIMIT $2`, id, lim)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch history")
	}
	defer rows.Close()

	records := []store.MatchRecord{}
	for rows.Next() {
		var (
			r    store.MatchRecord
			team string
		)
		err := rows.Scan(&r.MatchID, &r.Map, &r.PlayerID, &team, &r.Won,
			&r.OldRating, &r.NewRating, &r.RatingChange, &r.PerformanceScore, &r.PlayedAt)
		if err != nil {
			return nil, err
		}
		r.Team = model.Team(team)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
