package similarity

import (
	"context"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/utils"
)

// Remote accepts the similarity computed by a remote pair scorer.
type Remote struct {
	scorer PairScorer
	guard  guard
}

// NewRemote wraps scorer with caching and call bounding.
func NewRemote(scorer PairScorer, opts Options) *Remote {
	return &Remote{scorer: scorer, guard: newGuard(opts)}
}

func (r *Remote) Similarity(ctx context.Context, a, b string) (float64, error) {
	if blank(a) || blank(b) {
		return 0, nil
	}

	key := pairKey(a, b)
	if cached, ok := r.guard.cache.Get(ctx, key); ok && len(cached) == 1 {
		r.guard.logger.Debug("pair score cache hit", zap.String("key", key))
		return cached[0], nil
	}

	out, err := r.guard.do(ctx, func(ctx context.Context) ([]float64, error) {
		score, err := r.scorer.Score(ctx, a, b)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, errors.New("remote scorer returned a non-finite score")
		}
		return []float64{clamp01(score)}, nil
	})
	if err != nil {
		r.guard.logger.Warn("remote similarity failed",
			zap.String("text_a", utils.TruncateForLog(a, maxLogText)),
			zap.String("text_b", utils.TruncateForLog(b, maxLogText)),
			zap.Error(err),
		)
		return 0, err
	}

	r.guard.cache.Set(ctx, key, out)

	return out[0], nil
}

// pairKey is ordered and length-prefixed, so a separator inside a text cannot
// make two different pairs share a key.
func pairKey(a, b string) string {
	return Key("pair", strconv.Itoa(len(a))+":"+a+"\n"+b)
}
