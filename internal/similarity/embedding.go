package similarity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/utils"
)

const maxLogText = 60

// Embedding compares texts by the cosine similarity of their embeddings.
type Embedding struct {
	embedder Embedder
	guard    guard
}

// NewEmbedding wraps embedder with caching and call bounding.
func NewEmbedding(embedder Embedder, opts Options) *Embedding {
	return &Embedding{embedder: embedder, guard: newGuard(opts)}
}

func (e *Embedding) Similarity(ctx context.Context, a, b string) (float64, error) {
	if blank(a) || blank(b) {
		return 0, nil
	}

	va, err := e.embed(ctx, a)
	if err != nil {
		return 0, err
	}

	vb, err := e.embed(ctx, b)
	if err != nil {
		return 0, err
	}

	score, err := Cosine(va, vb)
	if err != nil {
		return 0, unavailable(fmt.Errorf("malformed embeddings: %w", err))
	}

	return score, nil
}

func (e *Embedding) embed(ctx context.Context, text string) ([]float64, error) {
	key := Key("emb", e.embedder.Model()+"|"+text)
	if vec, ok := e.guard.cache.Get(ctx, key); ok {
		e.guard.logger.Debug("embedding cache hit", zap.String("text", utils.TruncateForLog(text, maxLogText)))
		return vec, nil
	}

	vec, err := e.guard.do(ctx, func(ctx context.Context) ([]float64, error) {
		vec, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, errors.New("backend returned an empty embedding")
		}
		return vec, nil
	})
	if err != nil {
		e.guard.logger.Warn("embedding failed",
			zap.String("model", e.embedder.Model()),
			zap.String("text", utils.TruncateForLog(text, maxLogText)),
			zap.Error(err),
		)
		return nil, err
	}

	e.guard.cache.Set(ctx, key, vec)

	return vec, nil
}
