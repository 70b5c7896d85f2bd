// Package gormstore keeps ratings in SQLite through gorm.
package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"cs2-elo/model"
	"cs2-elo/store"
)

type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection queues transactions
	// instead of failing them with SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Player{}, &Match{}, &PlayerMatch{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate")
	}

	return &Store{db: db}, nil
}

func (s *Store) States(ctx context.Context, ids []string) (map[string]model.PlayerRatingState, error) {
	states := make(map[string]model.PlayerRatingState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	var players []Player
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, err
	}

	for _, p := range players {
		states[p.ID] = model.PlayerRatingState{
			Rating:      p.Rating,
			GamesPlayed: p.GamesPlayed,
			Wins:        p.Wins,
			Losses:      p.Losses,
		}
	}
	return states, nil
}

func (s *Store) Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) error {
	if err := store.CheckApply(match, updates); err != nil {
		return err
	}

	names := store.Names(match)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The match row doubles as the duplicate check
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&Match{
			ID:         match.ID,
			Map:        match.Map,
			TeamAScore: match.TeamAScore,
			TeamBScore: match.TeamBScore,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrDuplicateMatch
		}

		for _, u := range updates {
			if err := applyUpdate(tx, u, names[u.PlayerID]); err != nil {
				return err
			}
		}

		rows := make([]PlayerMatch, 0, len(updates))
		for _, u := range updates {
			rows = append(rows, PlayerMatch{
				MatchID:          match.ID,
				PlayerID:         u.PlayerID,
				Team:             string(u.Team),
				Won:              u.Won,
				OldRating:        u.OldRating,
				NewRating:        u.NewRating,
				RatingChange:     u.RatingChange,
				PerformanceScore: u.PerformanceScore,
			})
		}
		return tx.Omit("Match").Create(&rows).Error
	})
}

// applyUpdate moves one player only if their rating is still OldRating.
func applyUpdate(tx *gorm.DB, u model.RatingUpdate, name string) error {
	wins, losses := 0, 1
	if u.Won {
		wins, losses = 1, 0
	}

	fields := map[string]interface{}{
		"rating":       u.NewRating,
		"games_played": gorm.Expr("games_played + 1"),
		"wins":         gorm.Expr("wins + ?", wins),
		"losses":       gorm.Expr("losses + ?", losses),
	}
	if name != "" {
		fields["name"] = name
	}

	res := tx.Model(&Player{}).
		Where("id = ? AND rating = ?", u.PlayerID, u.OldRating).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var known int64
	if err := tx.Model(&Player{}).Where("id = ?", u.PlayerID).Count(&known).Error; err != nil {
		return err
	}
	if known > 0 || u.OldRating != model.DefaultRating {
		return store.ErrStaleRating
	}

	return tx.Create(&Player{
		ID:          u.PlayerID,
		Name:        name,
		Rating:      u.NewRating,
		GamesPlayed: 1,
		Wins:        wins,
		Losses:      losses,
	}).Error
}

func (s *Store) Leaderboard(ctx context.Context, offset, limit int) ([]store.Standing, error) {
	q := s.db.WithContext(ctx).Order("rating DESC, wins DESC, id ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var players []Player
	if err := q.Find(&players).Error; err != nil {
		return nil, err
	}

	standings := make([]store.Standing, 0, len(players))
	for i, p := range players {
		standing := toStanding(p)
		standing.Rank = max(offset, 0) + i + 1
		standings = append(standings, standing)
	}
	return standings, nil
}

func (s *Store) Player(ctx context.Context, id string) (*store.Standing, error) {
	db := s.db.WithContext(ctx)

	var p Player
	err := db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var ahead int64
	err = db.Model(&Player{}).
		Where("rating > ? OR (rating = ? AND wins > ?) OR (rating = ? AND wins = ? AND id < ?)",
			p.Rating, p.Rating, p.Wins, p.Rating, p.Wins, p.ID).
		Count(&ahead).Error
	if err != nil {
		return nil, err
	}

	standing := toStanding(p)
	standing.Rank = int(ahead) + 1
	return &standing, nil
}

func (s *Store) History(ctx context.Context, id string, limit int) ([]store.MatchRecord, error) {
	q := s.db.WithContext(ctx).
		Preload("Match").
		Where("player_id = ?", id).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []PlayerMatch
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]store.MatchRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, store.MatchRecord{
			MatchID:          r.MatchID,
			Map:              r.Match.Map,
			PlayerID:         r.PlayerID,
			Team:             model.Team(r.Team),
			Won:              r.Won,
			OldRating:        r.OldRating,
			NewRating:        r.NewRating,
			RatingChange:     r.RatingChange,
			PerformanceScore: r.PerformanceScore,
			PlayedAt:         r.CreatedAt,
		})
	}
	return records, nil
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func toStanding(p Player) store.Standing {
	return store.Standing{
		PlayerID:    p.ID,
		Name:        p.Name,
		Rating:      p.Rating,
		GamesPlayed: p.GamesPlayed,
		Wins:        p.Wins,
		Losses:      p.Losses,
	}
}
