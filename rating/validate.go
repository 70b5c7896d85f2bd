package rating

import (
	"math"

	"cs2-elo/model"
)

// validateMatch checks the match in a fixed order: scores, rosters, then
// every player's statistics. The first problem found is returned.
func validateMatch(match *model.MatchResult) error {
	if match == nil {
		return invalidMatch("", "no match")
	}

	if match.TeamAScore < 0 || match.TeamBScore < 0 {
		return invalidMatch(match.ID, "negative score %d-%d", match.TeamAScore, match.TeamBScore)
	}
	if match.TeamAScore == match.TeamBScore {
		return invalidMatch(match.ID, "no winner at %d-%d", match.TeamAScore, match.TeamBScore)
	}

	if len(match.TeamA) == 0 {
		return invalidMatch(match.ID, "team A roster is empty")
	}
	if len(match.TeamB) == 0 {
		return invalidMatch(match.ID, "team B roster is empty")
	}

	seen := make(map[string]bool, len(match.TeamA)+len(match.TeamB))
	for _, p := range match.Players() {
		if p.PlayerID == "" {
			return invalidMatch(match.ID, "player without id")
		}
		if seen[p.PlayerID] {
			return invalidMatch(match.ID, "player %s listed more than once", p.PlayerID)
		}
		seen[p.PlayerID] = true
	}

	for _, p := range match.Players() {
		if err := validateStat(p); err != nil {
			return err
		}
	}

	return nil
}

func validateStat(s model.PlayerMatchStat) error {
	counts := []struct {
		field string
		value int
	}{
		{"kills", s.Kills},
		{"deaths", s.Deaths},
		{"assists", s.Assists},
		{"headshot_kills", s.HeadshotKills},
		{"damage_dealt", s.DamageDealt},
		{"rounds_played", s.RoundsPlayed},
		{"entry_kills", s.EntryKills},
		{"entry_deaths", s.EntryDeaths},
		{"clutches_won", s.ClutchesWon},
		{"clutches_lost", s.ClutchesLost},
	}

	for _, c := range counts {
		if c.value < 0 {
			return &InvalidStatError{PlayerID: s.PlayerID, Field: c.field, Value: float64(c.value)}
		}
	}

	if s.HeadshotKills > s.Kills {
		return &InvalidStatError{PlayerID: s.PlayerID, Field: "headshot_kills", Value: float64(s.HeadshotKills)}
	}

	if math.IsNaN(s.KAST) || s.KAST < 0 || s.KAST > 100 {
		return &InvalidStatError{PlayerID: s.PlayerID, Field: "kast", Value: s.KAST}
	}

	return nil
}

func validateState(playerID string, s model.PlayerRatingState) error {
	if math.IsNaN(s.Rating) || math.IsInf(s.Rating, 0) {
		return &InvalidStatError{PlayerID: playerID, Field: "rating", Value: s.Rating}
	}
	if s.GamesPlayed < 0 {
		return &InvalidStatError{PlayerID: playerID, Field: "games_played", Value: float64(s.GamesPlayed)}
	}
	return nil
}
