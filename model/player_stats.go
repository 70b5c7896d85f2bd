package model

// PlayerMatchStat is one player's statistics for a single finished match.
type PlayerMatchStat struct {
	PlayerID string `json:"player_id" yaml:"player_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Team     Team   `json:"team" yaml:"team"`

	RoundsPlayed int `json:"rounds_played" yaml:"rounds_played"`

	Kills         int `json:"kills" yaml:"kills"`
	Deaths        int `json:"deaths" yaml:"deaths"`
	Assists       int `json:"assists" yaml:"assists"`
	HeadshotKills int `json:"headshot_kills,omitempty" yaml:"headshot_kills,omitempty"`
	DamageDealt   int `json:"damage_dealt" yaml:"damage_dealt"`

	// KAST is a percentage (0-100) of rounds with a Kill, Assist, Survival or Trade
	KAST float64 `json:"kast" yaml:"kast"`

	// Opening duels
	EntryKills  int `json:"entry_kills" yaml:"entry_kills"`
	EntryDeaths int `json:"entry_deaths" yaml:"entry_deaths"`

	// Last-alive rounds
	ClutchesWon  int `json:"clutches_won" yaml:"clutches_won"`
	ClutchesLost int `json:"clutches_lost" yaml:"clutches_lost"`
}

// DefaultRating is the rating every player starts at.
const DefaultRating = 1000.0

// PlayerRatingState is a pre-match snapshot of a player's rating.
type PlayerRatingState struct {
	Rating      float64 `json:"rating" yaml:"rating"`
	GamesPlayed int     `json:"games_played" yaml:"games_played"`
	Wins        int     `json:"wins" yaml:"wins"`
	Losses      int     `json:"losses" yaml:"losses"`
}

// NewPlayerRatingState returns the state of a player that has never been rated.
func NewPlayerRatingState() PlayerRatingState {
	return PlayerRatingState{Rating: DefaultRating}
}

// RatingUpdate is the engine's output for one player.
type RatingUpdate struct {
	PlayerID string `json:"player_id"`
	Team     Team   `json:"team"`

	OldRating    float64 `json:"old_rating"`
	NewRating    float64 `json:"new_rating"`
	RatingChange float64 `json:"rating_change"`

	// Diagnostics
	PerformanceScore float64 `json:"performance_score"`
	KFactor          float64 `json:"k_factor"`
	ExpectedWin      float64 `json:"expected_win"`

	Won bool `json:"won"`
}
