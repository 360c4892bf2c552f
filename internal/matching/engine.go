package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/scoring"
	"github.com/spigell/hh-matcher/internal/similarity"
)

// Deps aggregates the services the engine consults.
type Deps struct {
	Resolver   scoring.SkillMatcher
	Similarity similarity.Provider
	Logger     *zap.Logger
}

// Engine scores profile/job pairs with a fixed set of weights.
// It is safe for concurrent use when its dependencies are.
type Engine struct {
	weights    Weights
	resolver   scoring.SkillMatcher
	similarity similarity.Provider
	logger     *zap.Logger
}

// NewEngine validates weights and wires the engine. A nil similarity provider
// disables the semantic factor.
func NewEngine(weights Weights, deps Deps) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("%w: skill resolver is required", apperr.ErrConfiguration)
	}

	provider := deps.Similarity
	if provider == nil {
		provider = similarity.Disabled{}
	}

	return &Engine{
		weights:    weights,
		resolver:   deps.Resolver,
		similarity: provider,
		logger:     logger.WithFields(deps.Logger),
	}, nil
}

// Weights returns the validated factor weights the engine scores with.
func (e *Engine) Weights() Weights {
	return e.weights
}

// ScorePair scores one pair and fails when semantic similarity is unavailable.
func (e *Engine) ScorePair(ctx context.Context, p *catalog.Profile, j *catalog.Job) (*MatchResult, error) {
	if err := validatePair(p, j); err != nil {
		return nil, err
	}

	sem, err := scoring.Semantic(ctx, e.similarity, p, j, e.weights.Semantic)
	if err != nil {
		return nil, unavailable(err)
	}

	return Aggregate(e.factors(sem, p, j)), nil
}

// Score scores one pair, degrading to a zero semantic contribution when the
// similarity backend fails. Only invalid input is reported as an error.
func (e *Engine) Score(ctx context.Context, p *catalog.Profile, j *catalog.Job) (*MatchResult, error) {
	if err := validatePair(p, j); err != nil {
		return nil, err
	}

	sem, err := scoring.Semantic(ctx, e.similarity, p, j, e.weights.Semantic)
	if err != nil {
		e.logger.Debug("semantic similarity degraded",
			append(logger.PairFields(p.ID, j.ID), zap.Error(err))...,
		)
	}

	return Aggregate(e.factors(sem, p, j)), nil
}

func (e *Engine) factors(sem scoring.FactorResult, p *catalog.Profile, j *catalog.Job) []scoring.FactorResult {
	return []scoring.FactorResult{
		sem,
		scoring.RequiredSkills(e.resolver, p, j, e.weights.RequiredSkills),
		scoring.PreferredSkills(e.resolver, p, j, e.weights.PreferredSkills),
		scoring.Languages(p, j, e.weights.Languages),
		scoring.Experience(p, j, e.weights.Experience),
	}
}

func validatePair(p *catalog.Profile, j *catalog.Job) error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", apperr.ErrInvalidInput)
	}
	if j == nil {
		return fmt.Errorf("%w: job is required", apperr.ErrInvalidInput)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, apperr.ErrServiceUnavailable) {
		return fmt.Errorf("semantic similarity: %w", err)
	}
	return fmt.Errorf("semantic similarity: %w: %w", apperr.ErrServiceUnavailable, err)
}
