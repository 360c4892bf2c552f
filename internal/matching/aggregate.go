// Package matching combines factor results into a scored, explained match.
package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/hh-matcher/internal/scoring"
)

const (
	strongSemantic = 0.7
	weakSemantic   = 0.4
	maxSkillTips   = 3
)

// MatchResult is the explained outcome of scoring one profile against one job.
type MatchResult struct {
	Score           float64                                `json:"score"`
	Level           string                                 `json:"level"`
	Color           string                                 `json:"color"`
	Details         map[scoring.Factor]scoring.FactorResult `json:"details"`
	Strengths       []string                               `json:"strengths"`
	Weaknesses      []string                               `json:"weaknesses"`
	Recommendations []string                               `json:"recommendations"`
	// Degraded is set when the semantic factor could not be computed.
	Degraded bool `json:"degraded,omitempty"`
}

// Factor returns the detail of f and whether it was scored.
func (r *MatchResult) Factor(f scoring.Factor) (scoring.FactorResult, bool) {
	res, ok := r.Details[f]
	return res, ok
}

var levels = []struct {
	min   float64
	label string
}{
	{90, "Perfect"},
	{80, "Excellent"},
	{70, "Very Good"},
	{60, "Good"},
	{50, "Moderate"},
	{40, "Fair"},
	{30, "Poor"},
}

// Level labels a 0..100 score.
func Level(score float64) string {
	for _, l := range levels {
		if score >= l.min {
			return l.label
		}
	}
	return "Very Poor"
}

// Color maps a score to a status color class.
func Color(score float64) string {
	switch {
	case score >= 80:
		return "success"
	case score >= 60:
		return "warning"
	default:
		return "danger"
	}
}

// Aggregate sums factor scores and explains the outcome. It is pure.
func Aggregate(factors []scoring.FactorResult) *MatchResult {
	res := &MatchResult{
		Details:         make(map[scoring.Factor]scoring.FactorResult, len(factors)),
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	var total float64
	for _, f := range factors {
		total += max(f.Score, 0)
		res.Details[f.Factor] = f
		if f.Semantic != nil && f.Semantic.Degraded {
			res.Degraded = true
		}
	}

	res.Score = round2(total)
	res.Level = Level(res.Score)
	res.Color = Color(res.Score)

	res.explain()
	res.recommend()

	return res
}

func (r *MatchResult) explain() {
	if req, ok := r.Factor(scoring.FactorRequiredSkills); ok {
		if n := len(req.Matched); n > 0 {
			r.Strengths = append(r.Strengths, fmt.Sprintf("Matched %d required skill(s): %s", n, strings.Join(req.Matched, ", ")))
		}
		if n := len(req.Missing); n > 0 {
			r.Weaknesses = append(r.Weaknesses, fmt.Sprintf("Missing %d required skill(s): %s", n, strings.Join(req.Missing, ", ")))
		}
	}

	if pref, ok := r.Factor(scoring.FactorPreferredSkills); ok && len(pref.Matched) > 0 {
		r.Strengths = append(r.Strengths, "Has preferred skills: "+strings.Join(pref.Matched, ", "))
	}

	if lang, ok := r.Factor(scoring.FactorLanguages); ok {
		if len(lang.Matched) > 0 {
			r.Strengths = append(r.Strengths, "Speaks required languages")
		}
		if len(lang.Missing) > 0 {
			r.Weaknesses = append(r.Weaknesses, "Missing languages: "+strings.Join(lang.Missing, ", "))
		}
	}

	if exp, ok := r.Factor(scoring.FactorExperience); ok && exp.Experience != nil && exp.Experience.Required {
		if exp.Experience.MeetsRequirement {
			r.Strengths = append(r.Strengths, "Has sufficient experience")
		} else {
			r.Weaknesses = append(r.Weaknesses, fmt.Sprintf("Experience below requirement (%d of %d years)",
				exp.Experience.HaveYears, exp.Experience.WantYears))
		}
	}

	if sem, ok := r.Factor(scoring.FactorSemantic); ok && sem.Semantic != nil && !sem.Semantic.Degraded {
		switch {
		case sem.Semantic.Value >= strongSemantic:
			r.Strengths = append(r.Strengths, "Strong semantic alignment with job description")
		case sem.Semantic.Value < weakSemantic:
			r.Weaknesses = append(r.Weaknesses, "Low semantic similarity with job description")
		}
	}
}

func (r *MatchResult) recommend() {
	if req, ok := r.Factor(scoring.FactorRequiredSkills); ok {
		switch missing := req.Missing; {
		case len(missing) == 1:
			r.Recommendations = append(r.Recommendations, fmt.Sprintf("Learn %s to improve your match score", missing[0]))
		case len(missing) > 1:
			r.Recommendations = append(r.Recommendations, "Improve these skills: "+strings.Join(missing[:min(len(missing), maxSkillTips)], ", "))
		}
	}

	if exp, ok := r.Factor(scoring.FactorExperience); ok {
		if gap := exp.Experience.Shortfall(); gap > 0 {
			r.Recommendations = append(r.Recommendations, fmt.Sprintf("Gain %d more year(s) of experience", gap))
		}
	}

	if lang, ok := r.Factor(scoring.FactorLanguages); ok && len(lang.Missing) > 0 {
		r.Recommendations = append(r.Recommendations, "Consider learning: "+strings.Join(lang.Missing, ", "))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
