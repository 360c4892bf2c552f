package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/scoring"
	"github.com/spigell/hh-matcher/internal/vocabulary"
)

func intPtr(v int) *int { return &v }

type stubProvider struct {
	value float64
	err   error
}

func (s stubProvider) Similarity(context.Context, string, string) (float64, error) {
	return s.value, s.err
}

func newEngine(t *testing.T, provider stubProvider) *Engine {
	t.Helper()

	r, err := vocabulary.NewDefault()
	require.NoError(t, err)

	e, err := NewEngine(DefaultWeights(), Deps{Resolver: r, Similarity: provider})
	require.NoError(t, err)
	return e
}

func pythonPair() (*catalog.Profile, *catalog.Job) {
	p := &catalog.Profile{
		ID:              "p1",
		Skills:          []string{"Python", "Django", "PostgreSQL", "Docker"},
		Languages:       []string{"English", "Arabic"},
		ExperienceYears: 5,
	}
	j := &catalog.Job{
		ID:              "j1",
		Title:           "Senior Python Developer",
		RequiredSkills:  []string{"Python", "Django", "PostgreSQL"},
		PreferredSkills: []string{"Docker", "Kubernetes"},
		Languages:       []string{"English"},
		ExperienceYears: intPtr(4),
	}
	return p, j
}

func TestScorePairPythonDjango(t *testing.T) {
	t.Parallel()

	e := newEngine(t, stubProvider{value: 0.8})
	p, j := pythonPair()

	res, err := e.ScorePair(context.Background(), p, j)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score, 60.0)
	assert.InDelta(t, 87.5, res.Score, 1e-9)
	assert.Equal(t, "Excellent", res.Level)
	assert.Equal(t, "success", res.Color)
	assert.False(t, res.Degraded)

	pref, ok := res.Factor(scoring.FactorPreferredSkills)
	require.True(t, ok)
	assert.Equal(t, []string{"kubernetes"}, pref.Missing)
	assert.Equal(t, []string{"docker"}, pref.Matched)

	assert.Contains(t, res.Strengths, "Matched 3 required skill(s): python, django, postgresql")
	assert.Contains(t, res.Strengths, "Speaks required languages")
	assert.Contains(t, res.Strengths, "Has sufficient experience")
	assert.Contains(t, res.Strengths, "Strong semantic alignment with job description")
	assert.Empty(t, res.Recommendations)
}

func TestScorePairSurfacesUnavailable(t *testing.T) {
	t.Parallel()

	e := newEngine(t, stubProvider{err: errors.New("connection refused")})
	p, j := pythonPair()

	_, err := e.ScorePair(context.Background(), p, j)
	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}

func TestScoreDegrades(t *testing.T) {
	t.Parallel()

	e := newEngine(t, stubProvider{err: errors.New("connection refused")})
	p, j := pythonPair()

	res, err := e.Score(context.Background(), p, j)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.InDelta(t, 67.5, res.Score, 1e-9)
	assert.NotContains(t, res.Weaknesses, "Low semantic similarity with job description")
}

func TestScoreRejectsNilInput(t *testing.T) {
	t.Parallel()

	e := newEngine(t, stubProvider{})
	p, j := pythonPair()

	_, err := e.ScorePair(context.Background(), nil, j)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = e.Score(context.Background(), p, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestEmptyRequirementsScoreZero(t *testing.T) {
	t.Parallel()

	e := newEngine(t, stubProvider{})
	res, err := e.ScorePair(context.Background(), &catalog.Profile{Skills: []string{"go"}, ExperienceYears: 7}, &catalog.Job{Title: "Anything"})
	require.NoError(t, err)

	req, _ := res.Factor(scoring.FactorRequiredSkills)
	exp, _ := res.Factor(scoring.FactorExperience)
	assert.Zero(t, req.Score)
	assert.Zero(t, exp.Score)
	assert.Zero(t, res.Score)
	assert.Equal(t, "Very Poor", res.Level)
	assert.Equal(t, "danger", res.Color)
}

func TestNewEngineValidatesWeights(t *testing.T) {
	t.Parallel()

	r, err := vocabulary.NewDefault()
	require.NoError(t, err)

	tests := []struct {
		name    string
		weights Weights
	}{
		{name: "sum below one", weights: Weights{Semantic: 0.5, RequiredSkills: 0.4}},
		{name: "negative", weights: Weights{Semantic: -0.1, RequiredSkills: 0.6, PreferredSkills: 0.2, Languages: 0.2, Experience: 0.1}},
		{name: "zero", weights: Weights{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewEngine(tt.weights, Deps{Resolver: r})
			require.ErrorIs(t, err, apperr.ErrConfiguration)
		})
	}

	_, err = NewEngine(DefaultWeights(), Deps{})
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	custom := Weights{RequiredSkills: 0.7, Experience: 0.3 + 1e-7}
	e, err := NewEngine(custom, Deps{Resolver: r})
	require.NoError(t, err)
	assert.Equal(t, custom, e.Weights())
}

func TestLevelAndColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		level string
		color string
	}{
		{100, "Perfect", "success"},
		{90, "Perfect", "success"},
		{89.99, "Excellent", "success"},
		{80, "Excellent", "success"},
		{79.99, "Very Good", "warning"},
		{70, "Very Good", "warning"},
		{60, "Good", "warning"},
		{59.99, "Moderate", "danger"},
		{50, "Moderate", "danger"},
		{40, "Fair", "danger"},
		{30, "Poor", "danger"},
		{29.99, "Very Poor", "danger"},
		{0, "Very Poor", "danger"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, Level(tt.score), "level for %v", tt.score)
		assert.Equal(t, tt.color, Color(tt.score), "color for %v", tt.score)
	}
}

func TestAggregateRecommendations(t *testing.T) {
	t.Parallel()

	res := Aggregate([]scoring.FactorResult{
		{Factor: scoring.FactorRequiredSkills, Missing: []string{"go", "grpc", "kafka", "redis"}},
		{Factor: scoring.FactorExperience, Experience: &scoring.ExperienceDetail{HaveYears: 1, WantYears: 3, Required: true}},
		{Factor: scoring.FactorLanguages, Missing: []string{"german", "french"}},
		{Factor: scoring.FactorSemantic, Semantic: &scoring.SemanticDetail{Value: 0.2}},
	})

	assert.Equal(t, []string{
		"Improve these skills: go, grpc, kafka",
		"Gain 2 more year(s) of experience",
		"Consider learning: german, french",
	}, res.Recommendations)
	assert.Equal(t, []string{
		"Missing 4 required skill(s): go, grpc, kafka, redis",
		"Missing languages: german, french",
		"Experience below requirement (1 of 3 years)",
		"Low semantic similarity with job description",
	}, res.Weaknesses)

	single := Aggregate([]scoring.FactorResult{{Factor: scoring.FactorRequiredSkills, Missing: []string{"kubernetes"}}})
	assert.Equal(t, []string{"Learn kubernetes to improve your match score"}, single.Recommendations)
}

func TestAggregateRoundsAndIsMonotonic(t *testing.T) {
	t.Parallel()

	base := []scoring.FactorResult{
		{Factor: scoring.FactorSemantic, Score: 10.004},
		{Factor: scoring.FactorRequiredSkills, Score: 13.333333},
		{Factor: scoring.FactorPreferredSkills, Score: 7.5},
		{Factor: scoring.FactorLanguages, Score: 5},
		{Factor: scoring.FactorExperience, Score: 2.5},
	}

	res := Aggregate(base)
	assert.InDelta(t, 38.34, res.Score, 1e-9)

	for i := range base {
		prev := res.Score
		for step := 1; step <= 10; step++ {
			bumped := append([]scoring.FactorResult(nil), base...)
			bumped[i].Score += float64(step)
			got := Aggregate(bumped).Score
			assert.GreaterOrEqual(t, got, prev, "factor %s step %d", bumped[i].Factor, step)
			prev = got
		}
	}
}
