// Package rating implements the match rating (ELO) calculation.
// This file defines the constants used by the engine:
// - K-factor base, floor and adjustments
// - Performance score weights
// - Outcome shaping (dominance, loser credit) and the change clamp
package rating

// K-factor controls how far a single match can move a rating.
const (
	BaseKFactor = 32.0 // K for new and mid-experience players
	MinKFactor  = 12.0 // K never goes below this

	ExperienceThreshold  = 50    // Games after which K starts decaying
	ExperienceDecaySpan  = 200.0 // Games over which K decays to the floor multiplier
	ExperienceDecayFloor = 0.5   // K is never decayed below half

	HighRatingThreshold  = 1800.0 // Ratings above this move slower
	HighRatingMultiplier = 0.8
	LowRatingThreshold   = 1200.0 // Ratings below this move faster
	LowRatingMultiplier  = 1.2
)

// Expected score uses the standard logistic curve.
const (
	RatingScale = 400.0 // Rating difference for 10:1 odds
)

// Performance score weights. An average player scores roughly 1.0.
const (
	KDWeight   = 0.3
	KPRWeight  = 0.2
	ADRWeight  = 0.3
	KASTWeight = 0.2

	ADRNormalizer = 100.0 // ADR is divided by this before weighting

	EntryImpactWeight  = 0.15 // Opening duel success rate
	ClutchImpactWeight = 0.15 // Clutch success rate

	NeutralSuccessRate = 0.5 // Used when no opening duels or clutches were recorded

	PerformanceWeight  = 0.4 // How much performance scales the final change
	PerformanceNeutral = 1.0 // Performance that leaves the change unscaled
)

// Outcome shaping.
const (
	DominanceRoundDivisor = 32.0 // Each round of margin adds 1/32 to the winner's result
	MaxDominance          = 1.3  // Blowouts are credited at most 1.3

	LoserPerformanceShare = 0.4 // Losers are credited 0.4 * performance
	MinLoserResult        = 0.2 // ...but never less than this

	MaxRatingChange = 50.0 // Per-match change is clamped to +/- this
)
