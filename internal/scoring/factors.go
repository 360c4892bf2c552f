// Package scoring computes the weighted per-factor contributions of a profile/job pair.
package scoring

import (
	"context"
	"strings"

	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/similarity"
	"github.com/spigell/hh-matcher/internal/utils"
	"github.com/spigell/hh-matcher/internal/vocabulary"
)

// Factor names one weighted dimension of a match.
type Factor string

const (
	FactorSemantic        Factor = "semantic"
	FactorRequiredSkills  Factor = "required_skills"
	FactorPreferredSkills Factor = "preferred_skills"
	FactorLanguages       Factor = "languages"
	FactorExperience      Factor = "experience"
)

// Factors lists every factor in reporting order.
var Factors = []Factor{
	FactorSemantic,
	FactorRequiredSkills,
	FactorPreferredSkills,
	FactorLanguages,
	FactorExperience,
}

// FactorResult is one factor's contribution. Score ranges over 0..Weight*100.
type FactorResult struct {
	Factor     Factor            `json:"factor"`
	Weight     float64           `json:"weight"`
	Score      float64           `json:"score"`
	Percentage float64           `json:"percentage"`
	Matched    []string          `json:"matched,omitempty"`
	Missing    []string          `json:"missing,omitempty"`
	Experience *ExperienceDetail `json:"experience,omitempty"`
	Semantic   *SemanticDetail   `json:"semantic,omitempty"`
}

type ExperienceDetail struct {
	HaveYears        int  `json:"have_years"`
	WantYears        int  `json:"want_years"`
	Required         bool `json:"required"`
	MeetsRequirement bool `json:"meets_requirement"`
}

// Shortfall is the number of years missing to meet the requirement.
func (d *ExperienceDetail) Shortfall() int {
	if d == nil || !d.Required || d.MeetsRequirement {
		return 0
	}
	return d.WantYears - d.HaveYears
}

type SemanticDetail struct {
	Value float64 `json:"value"`
	// Degraded is set when the similarity backend failed and Value was not computed.
	Degraded bool `json:"degraded,omitempty"`
}

// SkillMatcher compares skill lists through canonical forms.
type SkillMatcher interface {
	MatchSets(have, want []string) vocabulary.MatchSet
}

// RequiredSkills scores the share of the job's required skills the profile covers.
func RequiredSkills(m SkillMatcher, p *catalog.Profile, j *catalog.Job, weight float64) FactorResult {
	return skills(FactorRequiredSkills, m, p.Skills, j.RequiredSkills, weight)
}

// PreferredSkills scores the share of the job's preferred skills the profile covers.
func PreferredSkills(m SkillMatcher, p *catalog.Profile, j *catalog.Job, weight float64) FactorResult {
	return skills(FactorPreferredSkills, m, p.Skills, j.PreferredSkills, weight)
}

func skills(f Factor, m SkillMatcher, have, want []string, weight float64) FactorResult {
	set := m.MatchSets(have, want)
	return FactorResult{
		Factor:     f,
		Weight:     weight,
		Score:      scaled(set.Percentage/100, weight),
		Percentage: set.Percentage,
		Matched:    set.Matched,
		Missing:    set.Missing,
	}
}

// Languages compares language names case-insensitively without synonyms.
func Languages(p *catalog.Profile, j *catalog.Job, weight float64) FactorResult {
	res := FactorResult{Factor: FactorLanguages, Weight: weight, Matched: []string{}, Missing: []string{}}

	want := utils.Dedupe(j.Languages, languageKey)
	if len(want) == 0 {
		return res
	}

	have := make(map[string]struct{}, len(p.Languages))
	for _, lang := range utils.Dedupe(p.Languages, languageKey) {
		have[lang] = struct{}{}
	}

	for _, lang := range want {
		if _, ok := have[lang]; ok {
			res.Matched = append(res.Matched, lang)
		} else {
			res.Missing = append(res.Missing, lang)
		}
	}

	ratio := float64(len(res.Matched)) / float64(len(want))
	res.Percentage = ratio * 100
	res.Score = scaled(ratio, weight)
	return res
}

func languageKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Experience scores years of experience against the job's requirement.
// A missing or zero requirement contributes nothing and is always met.
func Experience(p *catalog.Profile, j *catalog.Job, weight float64) FactorResult {
	have := max(p.ExperienceYears, 0)
	want := j.RequiredYears()

	res := FactorResult{
		Factor: FactorExperience,
		Weight: weight,
		Experience: &ExperienceDetail{
			HaveYears:        have,
			WantYears:        want,
			Required:         want > 0,
			MeetsRequirement: true,
		},
	}
	if want == 0 {
		return res
	}

	ratio := min(float64(have)/float64(want), 1)
	res.Percentage = ratio * 100
	res.Score = scaled(ratio, weight)
	res.Experience.MeetsRequirement = have >= want
	return res
}

// SemanticTexts builds the texts compared by the similarity provider.
func SemanticTexts(p *catalog.Profile, j *catalog.Job) (profileText, jobText string) {
	parts := make([]string, 0, len(p.Skills)+len(p.ExperienceText))
	parts = append(parts, p.Skills...)
	parts = append(parts, p.ExperienceText...)

	return strings.Join(parts, " "), strings.Join(j.RequiredSkills, " ") + " " + j.Title
}

// Semantic asks provider for the similarity of the pair's texts. On failure it
// returns a degraded zero result together with the error.
func Semantic(ctx context.Context, provider similarity.Provider, p *catalog.Profile, j *catalog.Job, weight float64) (FactorResult, error) {
	a, b := SemanticTexts(p, j)

	value, err := provider.Similarity(ctx, a, b)
	if err != nil {
		res := SemanticFromValue(0, weight)
		res.Semantic.Degraded = true
		return res, err
	}
	return SemanticFromValue(value, weight), nil
}

// SemanticFromValue scales a similarity value in [0,1] by weight.
func SemanticFromValue(value, weight float64) FactorResult {
	value = min(max(value, 0), 1)
	return FactorResult{
		Factor:     FactorSemantic,
		Weight:     weight,
		Score:      scaled(value, weight),
		Percentage: value * 100,
		Semantic:   &SemanticDetail{Value: value},
	}
}

func scaled(ratio, weight float64) float64 {
	if ratio <= 0 || weight <= 0 {
		return 0
	}
	return ratio * weight * 100
}
