// Package similarity turns two text blobs into a [0,1] semantic similarity
// score using an embedding backend or a remote pair scorer.
package similarity

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/hh-matcher/internal/apperr"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxInFlight = 4
)

// Provider scores the semantic similarity of two texts.
type Provider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// PairScorer scores two texts directly on a remote service.
type PairScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// Options tune the call guard shared by every backend.
type Options struct {
	Timeout     time.Duration
	MaxInFlight int64
	Cache       Cache
	Logger      *zap.Logger
}

// Disabled is a Provider that never contributes similarity.
type Disabled struct{}

func (Disabled) Similarity(context.Context, string, string) (float64, error) { return 0, nil }

// guard bounds backend calls: a semaphore caps in-flight requests and each
// request runs under its own timeout.
type guard struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	cache   Cache
	logger  *zap.Logger
}

func newGuard(opts Options) guard {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.Cache == nil {
		opts.Cache = NopCache{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return guard{
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
		timeout: opts.Timeout,
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
}

// do runs call with the concurrency cap and timeout applied. Any failure is
// reported as ErrServiceUnavailable.
func (g guard) do(ctx context.Context, call func(ctx context.Context) ([]float64, error)) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, unavailable(fmt.Errorf("waiting for a backend slot: %w", err))
	}
	defer g.sem.Release(1)

	out, err := call(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	return out, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", apperr.ErrServiceUnavailable, err)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Key builds a deterministic cache key from a content hash of payload.
func Key(prefix, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// Cosine returns the cosine similarity of a and b clamped to [0,1].
// Zero vectors yield 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d != %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	if na == 0 || nb == 0 {
		return 0, nil
	}

	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb))), nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
