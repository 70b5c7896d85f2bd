package gormstore

import "time"

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

type Player struct {
	// Steam ID or any other stable player id
	ID   string `gorm:"primaryKey"`
	Name string

	Rating      float64 `gorm:"not null;index"`
	GamesPlayed int     `gorm:"not null"`
	Wins        int     `gorm:"not null"`
	Losses      int     `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Match struct {
	ID         string `gorm:"primaryKey"`
	Map        string
	TeamAScore int
	TeamBScore int
	CreatedAt  time.Time
}

// PlayerMatch is one player's line in a rated match.
type PlayerMatch struct {
	Entity

	MatchID  string `gorm:"not null;index"`
	PlayerID string `gorm:"not null;index"`
	Team     string
	Won      bool

	OldRating        float64
	NewRating        float64
	RatingChange     float64
	PerformanceScore float64

	CreatedAt time.Time

	Match Match `gorm:"foreignKey:MatchID"`
}
