package rating

import "math"

// Tier is a named rating band. Max is exclusive; the top tier is unbounded.
type Tier struct {
	Name string
	Min  float64
	Max  float64
}

// Tiers lists every rank from lowest to highest.
var Tiers = []Tier{
	{"Iron I", 0, 700},
	{"Iron II", 700, 800},
	{"Bronze I", 800, 900},
	{"Bronze II", 900, 1000},
	{"Silver I", 1000, 1100},
	{"Silver II", 1100, 1200},
	{"Gold I", 1200, 1300},
	{"Gold II", 1300, 1400},
	{"Platinum I", 1400, 1500},
	{"Platinum II", 1500, 1600},
	{"Diamond I", 1600, 1700},
	{"Diamond II", 1700, 1800},
	{"Master", 1800, 2000},
	{"Elite", 2000, 2200},
	{"Global Elite", 2200, math.Inf(1)},
}

// Rank describes where a rating sits.
type Rank struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`

	// Progress through the current tier, 0-100
	Progress int `json:"progress"`

	NextTier     string `json:"next_tier,omitempty"`
	PointsToNext int    `json:"points_to_next"`
}

// RankFor returns the tier for rating. Negative ratings sit at the bottom of
// the lowest tier.
func RankFor(rating float64) Rank {
	idx := len(Tiers) - 1
	for i, tier := range Tiers {
		if rating < tier.Max {
			idx = i
			break
		}
	}

	tier := Tiers[idx]
	rank := Rank{
		Name:   tier.Name,
		Rating: int(math.Round(rating)),
	}

	if idx == len(Tiers)-1 {
		return rank
	}

	progress := (math.Max(rating, tier.Min) - tier.Min) / (tier.Max - tier.Min)
	rank.Progress = int(math.Round(progress * 100))
	rank.NextTier = Tiers[idx+1].Name
	rank.PointsToNext = int(math.Round(tier.Max - rating))

	return rank
}
