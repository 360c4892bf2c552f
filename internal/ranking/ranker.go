// Package ranking scores a collection against one profile or job and orders the results.
package ranking

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/catalog"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/matching"
)

const (
	// DefaultMinJobScore is the exclusive threshold for jobs ranked for a profile.
	DefaultMinJobScore = 10.0
	// DefaultMinProfileScore is the exclusive threshold for profiles ranked for a job.
	DefaultMinProfileScore = 20.0
)

// Scorer is the best-effort pair scorer used for ranking.
type Scorer interface {
	Score(ctx context.Context, p *catalog.Profile, j *catalog.Job) (*matching.MatchResult, error)
}

type Options struct {
	// Workers bounds concurrent pair scorings. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

type JobMatch struct {
	Job   *catalog.Job          `json:"job"`
	Match *matching.MatchResult `json:"match"`
}

type ProfileMatch struct {
	Profile *catalog.Profile      `json:"profile"`
	Match   *matching.MatchResult `json:"match"`
}

type Ranker struct {
	scorer  Scorer
	workers int
	logger  *zap.Logger
}

func New(scorer Scorer, opts Options) *Ranker {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ranker{
		scorer:  scorer,
		workers: workers,
		logger:  logger.WithFields(opts.Logger),
	}
}

// RankJobs scores jobs for profile and returns those scoring above minScore,
// best first. Ties keep input order.
func (r *Ranker) RankJobs(ctx context.Context, profile *catalog.Profile, jobs []*catalog.Job, minScore float64) ([]JobMatch, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", apperr.ErrInvalidInput)
	}

	log := r.logger.With(zap.String(logger.FieldRunID, uuid.NewString()), zap.String(logger.FieldProfileID, profile.ID))

	results, err := r.run(ctx, log, len(jobs), func(ctx context.Context, i int) (*matching.MatchResult, []zap.Field, error) {
		job := jobs[i]
		if job == nil {
			return nil, nil, nil
		}
		res, err := r.scorer.Score(ctx, profile, job)
		return res, []zap.Field{zap.String(logger.FieldJobID, job.ID)}, err
	})
	if err != nil {
		return nil, err
	}

	matches := make([]JobMatch, 0, len(jobs))
	for i, res := range results {
		if keep(log, res, minScore, zap.String(logger.FieldJobID, jobID(jobs[i]))) {
			matches = append(matches, JobMatch{Job: jobs[i], Match: res})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Match.Score > matches[b].Match.Score
	})

	log.Info("jobs ranked",
		zap.Int("candidates", len(jobs)),
		zap.Int("kept", len(matches)),
		zap.Float64("min_score", minScore),
	)

	return matches, nil
}

// RankProfiles scores profiles for job and returns those scoring above minScore,
// best first. Ties keep input order.
func (r *Ranker) RankProfiles(ctx context.Context, job *catalog.Job, profiles []*catalog.Profile, minScore float64) ([]ProfileMatch, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", apperr.ErrInvalidInput)
	}

	log := r.logger.With(zap.String(logger.FieldRunID, uuid.NewString()), zap.String(logger.FieldJobID, job.ID))

	results, err := r.run(ctx, log, len(profiles), func(ctx context.Context, i int) (*matching.MatchResult, []zap.Field, error) {
		profile := profiles[i]
		if profile == nil {
			return nil, nil, nil
		}
		res, err := r.scorer.Score(ctx, profile, job)
		return res, []zap.Field{zap.String(logger.FieldProfileID, profile.ID)}, err
	})
	if err != nil {
		return nil, err
	}

	matches := make([]ProfileMatch, 0, len(profiles))
	for i, res := range results {
		if keep(log, res, minScore, zap.String(logger.FieldProfileID, profileID(profiles[i]))) {
			matches = append(matches, ProfileMatch{Profile: profiles[i], Match: res})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Match.Score > matches[b].Match.Score
	})

	log.Info("profiles ranked",
		zap.Int("candidates", len(profiles)),
		zap.Int("kept", len(matches)),
		zap.Float64("min_score", minScore),
	)

	return matches, nil
}

type scoreFunc func(ctx context.Context, i int) (*matching.MatchResult, []zap.Field, error)

// run scores n pairs on a bounded worker pool. Results are index-addressed so
// callers see input order regardless of completion order.
func (r *Ranker) run(ctx context.Context, log *zap.Logger, n int, score scoreFunc) ([]*matching.MatchResult, error) {
	started := time.Now()
	results := make([]*matching.MatchResult, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, fields, err := score(gctx, i)
			if err != nil {
				return err
			}
			if res != nil && res.Degraded {
				log.Debug("pair scored without semantic similarity", fields...)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("pairs scored",
		zap.Int("pairs", n),
		zap.Int("workers", r.workers),
		zap.Duration("elapsed", time.Since(started)),
	)

	return results, nil
}

func keep(log *zap.Logger, res *matching.MatchResult, minScore float64, id zap.Field) bool {
	if res == nil {
		return false
	}
	if res.Score <= minScore {
		log.Debug("pair dropped below threshold", id, zap.Float64("score", res.Score))
		return false
	}
	return true
}

func jobID(j *catalog.Job) string {
	if j == nil {
		return ""
	}
	return j.ID
}

func profileID(p *catalog.Profile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
