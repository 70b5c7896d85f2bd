package rating

import (
	"math"

	"cs2-elo/model"
)

// Engine turns a decided match into per-player rating changes. It holds
// only its constants and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine using it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

var defaultEngine = &Engine{cfg: DefaultConfig()}

// Default returns an engine with the standard constants.
func Default() *Engine {
	return defaultEngine
}

// Config returns the engine's constants.
func (e *Engine) Config() Config {
	return e.cfg
}

// Validate checks a match without rating it. It returns the same errors as
// ComputeMatchRatings.
func (e *Engine) Validate(match *model.MatchResult) error {
	return validateMatch(match)
}

// ComputeMatchRatings rates a match with the standard constants.
func ComputeMatchRatings(match *model.MatchResult, states map[string]model.PlayerRatingState) ([]model.RatingUpdate, error) {
	return defaultEngine.ComputeMatchRatings(match, states)
}

// ComputeMatchRatings returns one update per player, team A roster first.
// Players missing from states are rated as new players. Nothing is
// computed unless the whole input is valid.
func (e *Engine) ComputeMatchRatings(match *model.MatchResult, states map[string]model.PlayerRatingState) ([]model.RatingUpdate, error) {
	if err := validateMatch(match); err != nil {
		return nil, err
	}
	for _, p := range match.Players() {
		if state, ok := states[p.PlayerID]; ok {
			if err := validateState(p.PlayerID, state); err != nil {
				return nil, err
			}
		}
	}

	stateOf := func(id string) model.PlayerRatingState {
		if state, ok := states[id]; ok {
			return state
		}
		return model.NewPlayerRatingState()
	}

	// === Step 1: Team average ratings ===
	ratingA := teamAverage(match.TeamA, stateOf)
	ratingB := teamAverage(match.TeamB, stateOf)

	// === Step 2: Winner and dominance ===
	teamAWon := match.TeamAWon()
	dominance := e.Dominance(match.TeamAScore, match.TeamBScore)

	updates := make([]model.RatingUpdate, 0, len(match.TeamA)+len(match.TeamB))
	sides := []struct {
		roster      []model.PlayerMatchStat
		won         bool
		enemyRating float64
	}{
		{match.TeamA, teamAWon, ratingB},
		{match.TeamB, !teamAWon, ratingA},
	}

	// === Step 3: Per-player change ===
	for _, side := range sides {
		for _, p := range side.roster {
			state := stateOf(p.PlayerID)

			performance := e.Performance(p)
			kFactor := e.KFactor(state)
			expected := e.ExpectedWin(state.Rating, side.enemyRating)

			var actual float64
			if side.won {
				actual = 1.0 * dominance
			} else {
				// Strong play softens a loss
				actual = math.Max(MinLoserResult, LoserPerformanceShare*performance)
			}

			change := kFactor * (actual - expected)
			change *= 1 + (performance-PerformanceNeutral)*e.cfg.PerformanceWeight
			change = math.Max(-e.cfg.MaxRatingChange, math.Min(e.cfg.MaxRatingChange, change))

			updates = append(updates, model.RatingUpdate{
				PlayerID:         p.PlayerID,
				Team:             p.Team,
				OldRating:        state.Rating,
				NewRating:        state.Rating + change,
				RatingChange:     change,
				PerformanceScore: performance,
				KFactor:          kFactor,
				ExpectedWin:      expected,
				Won:              side.won,
			})
		}
	}

	return updates, nil
}

// Performance scores a stat line; an average player lands near 1.0. The
// score is not clamped.
func (e *Engine) Performance(p model.PlayerMatchStat) float64 {
	rounds := float64(max(p.RoundsPlayed, 1))

	kdRatio := float64(p.Kills) / float64(max(p.Deaths, 1))
	kpr := float64(p.Kills) / rounds
	adr := float64(p.DamageDealt) / rounds
	kast := p.KAST / 100

	baseScore := kdRatio*KDWeight +
		kpr*KPRWeight +
		(adr/ADRNormalizer)*ADRWeight +
		kast*KASTWeight

	if e.cfg.HeadshotWeight > 0 {
		hsRatio := float64(p.HeadshotKills) / float64(max(p.Kills, 1))
		baseScore += hsRatio * e.cfg.HeadshotWeight
	}

	entrySuccess := successRate(p.EntryKills, p.EntryDeaths)
	clutchSuccess := successRate(p.ClutchesWon, p.ClutchesLost)
	impactScore := entrySuccess*EntryImpactWeight + clutchSuccess*ClutchImpactWeight

	return baseScore * (1 + impactScore)
}

// KFactor returns the sensitivity for a player's pre-match state.
func (e *Engine) KFactor(state model.PlayerRatingState) float64 {
	k := e.cfg.BaseKFactor

	// Experienced players settle
	if state.GamesPlayed > ExperienceThreshold {
		decay := 1 - float64(state.GamesPlayed-ExperienceThreshold)/ExperienceDecaySpan
		k *= math.Max(ExperienceDecayFloor, decay)
	}

	// The low band waits for a first game so new players start at base K
	if state.Rating > HighRatingThreshold {
		k *= HighRatingMultiplier
	} else if state.Rating < LowRatingThreshold && state.GamesPlayed > 0 {
		k *= LowRatingMultiplier
	}

	return math.Max(e.cfg.MinKFactor, k)
}

// ExpectedWin is the logistic probability that a player rated rating beats
// a team averaging enemyRating.
func (e *Engine) ExpectedWin(rating, enemyRating float64) float64 {
	diff := (enemyRating - rating) / RatingScale
	return 1 / (1 + math.Pow(10, diff))
}

// Dominance is the winner's credited result for a final score, growing
// with the round margin up to MaxDominance.
func (e *Engine) Dominance(scoreA, scoreB int) float64 {
	diff := scoreA - scoreB
	if diff < 0 {
		diff = -diff
	}
	return math.Min(MaxDominance, 1+float64(diff)/DominanceRoundDivisor)
}

func successRate(won, lost int) float64 {
	attempts := won + lost
	if attempts == 0 {
		return NeutralSuccessRate
	}
	return float64(won) / float64(attempts)
}

func teamAverage(roster []model.PlayerMatchStat, stateOf func(string) model.PlayerRatingState) float64 {
	total := 0.0
	for _, p := range roster {
		total += stateOf(p.PlayerID).Rating
	}
	return total / float64(len(roster))
}
