package rating

import (
	"fmt"
	"math"
)

// Config holds the tunable parts of the engine. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	BaseKFactor       float64 `yaml:"base_k_factor" json:"base_k_factor"`
	MinKFactor        float64 `yaml:"min_k_factor" json:"min_k_factor"`
	PerformanceWeight float64 `yaml:"performance_weight" json:"performance_weight"`
	MaxRatingChange   float64 `yaml:"max_rating_change" json:"max_rating_change"`

	// HeadshotWeight adds headshot_kills/kills * HeadshotWeight to the base
	// performance score. Zero disables the term.
	HeadshotWeight float64 `yaml:"headshot_weight" json:"headshot_weight"`
}

// DefaultConfig returns the standard engine constants.
func DefaultConfig() Config {
	return Config{
		BaseKFactor:       BaseKFactor,
		MinKFactor:        MinKFactor,
		PerformanceWeight: PerformanceWeight,
		MaxRatingChange:   MaxRatingChange,
	}
}

// Validate checks that every constant is finite and in range.
func (c Config) Validate() error {
	fields := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"base_k_factor", c.BaseKFactor, true},
		{"min_k_factor", c.MinKFactor, false},
		{"performance_weight", c.PerformanceWeight, false},
		{"max_rating_change", c.MaxRatingChange, true},
		{"headshot_weight", c.HeadshotWeight, false},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("rating config %s must be finite", f.name)
		}
		if f.value < 0 || (f.positive && f.value == 0) {
			return fmt.Errorf("rating config %s out of range: %v", f.name, f.value)
		}
	}

	return nil
}
