package matching

import (
	"fmt"
	"math"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/scoring"
)

const weightTolerance = 1e-6

// Weights holds the share of the final score each factor can contribute.
type Weights struct {
	Semantic        float64 `mapstructure:"semantic" json:"semantic"`
	RequiredSkills  float64 `mapstructure:"required-skills" json:"required_skills"`
	PreferredSkills float64 `mapstructure:"preferred-skills" json:"preferred_skills"`
	Languages       float64 `mapstructure:"languages" json:"languages"`
	Experience      float64 `mapstructure:"experience" json:"experience"`
}

func DefaultWeights() Weights {
	return Weights{
		Semantic:        0.25,
		RequiredSkills:  0.40,
		PreferredSkills: 0.15,
		Languages:       0.10,
		Experience:      0.10,
	}
}

// For returns the weight of factor f.
func (w Weights) For(f scoring.Factor) float64 {
	switch f {
	case scoring.FactorSemantic:
		return w.Semantic
	case scoring.FactorRequiredSkills:
		return w.RequiredSkills
	case scoring.FactorPreferredSkills:
		return w.PreferredSkills
	case scoring.FactorLanguages:
		return w.Languages
	case scoring.FactorExperience:
		return w.Experience
	default:
		return 0
	}
}

func (w Weights) Sum() float64 {
	var sum float64
	for _, f := range scoring.Factors {
		sum += w.For(f)
	}
	return sum
}

// Validate requires non-negative weights summing to 1.
func (w Weights) Validate() error {
	for _, f := range scoring.Factors {
		v := w.For(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %s must be a non-negative number, got %v", apperr.ErrConfiguration, f, v)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %.6f", apperr.ErrConfiguration, sum)
	}
	return nil
}
