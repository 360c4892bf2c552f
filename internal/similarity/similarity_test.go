package similarity

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-matcher/internal/apperr"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	err     error
	calls   int
	delay   time.Duration
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float64{1, 0, 0}, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedding" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScorer struct {
	calls    atomic.Int32
	score    float64
	err      error
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func (f *fakeScorer) Score(ctx context.Context, _, _ string) (float64, error) {
	f.calls.Add(1)
	now := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if now <= peak || f.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	return f.score, f.err
}

func TestBlankInputSkipsBackend(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	scorer := &fakeScorer{score: 0.9}
	providers := map[string]Provider{
		"embedding": NewEmbedding(embedder, Options{}),
		"remote":    NewRemote(scorer, Options{}),
	}

	for name, p := range providers {
		for _, pair := range [][2]string{{"python developer", ""}, {"", "python developer"}, {"  ", "\t"}} {
			got, err := p.Similarity(context.Background(), pair[0], pair[1])
			require.NoError(t, err, name)
			assert.Zero(t, got, name)
		}
	}

	assert.Zero(t, embedder.callCount())
	assert.Zero(t, scorer.calls.Load())
}

func TestEmbeddingCosine(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"python django":           {1, 1, 0},
		"senior python developer": {1, 0, 0},
		"opposite":                {-1, 0, 0},
		"zero":                    {0, 0, 0},
	}}
	p := NewEmbedding(embedder, Options{})

	got, err := p.Similarity(context.Background(), "python django", "senior python developer")
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, got, 1e-9)

	got, err = p.Similarity(context.Background(), "opposite", "senior python developer")
	require.NoError(t, err)
	assert.Zero(t, got, "negative cosine is clamped")

	got, err = p.Similarity(context.Background(), "zero", "senior python developer")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestEmbeddingCacheHitMatchesMiss(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"a": {0.3, 0.4, 0.5},
		"b": {0.5, 0.1, 0.9},
	}}
	p := NewEmbedding(embedder, Options{Cache: NewMemoryCache(time.Minute, time.Minute)})

	first, err := p.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	second, err := p.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, embedder.callCount())
}

func TestEmbeddingFailureIsServiceUnavailable(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	embedder := &fakeEmbedder{err: errors.New("connection refused")}
	p := NewEmbedding(embedder, Options{Logger: zap.New(core)})

	_, err := p.Similarity(context.Background(), "a", "b")
	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
	assert.Equal(t, 1, logs.FilterMessage("embedding failed").Len())
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float64{"a": {1, 0}, "b": {1, 0, 0}}}
	p := NewEmbedding(embedder, Options{})

	_, err := p.Similarity(context.Background(), "a", "b")
	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}

func TestEmbeddingTimeout(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{delay: time.Second}
	p := NewEmbedding(embedder, Options{Timeout: 10 * time.Millisecond})

	_, err := p.Similarity(context.Background(), "a", "b")
	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemoteScoreClampedAndCached(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 1.7}
	p := NewRemote(scorer, Options{Cache: NewMemoryCache(time.Minute, time.Minute)})

	got, err := p.Similarity(context.Background(), "cv", "job")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = p.Similarity(context.Background(), "cv", "job")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
	assert.EqualValues(t, 1, scorer.calls.Load())

	_, err = p.Similarity(context.Background(), "job", "cv")
	require.NoError(t, err)
	assert.EqualValues(t, 2, scorer.calls.Load(), "pair keys are ordered")
}

type scorerFunc func(ctx context.Context, a, b string) (float64, error)

func (f scorerFunc) Score(ctx context.Context, a, b string) (float64, error) { return f(ctx, a, b) }

func TestRemotePairsSharingJoinedTextCacheSeparately(t *testing.T) {
	t.Parallel()

	scorer := scorerFunc(func(_ context.Context, a, _ string) (float64, error) {
		if strings.Contains(a, "\n") {
			return 0.9, nil
		}
		return 0.1, nil
	})

	cached := NewRemote(scorer, Options{Cache: NewMemoryCache(time.Minute, time.Minute)})
	fresh := NewRemote(scorer, Options{})

	first, err := cached.Similarity(context.Background(), "python\ndjango", "developer")
	require.NoError(t, err)
	assert.Equal(t, 0.9, first)

	second, err := cached.Similarity(context.Background(), "python", "django\ndeveloper")
	require.NoError(t, err)

	want, err := fresh.Similarity(context.Background(), "python", "django\ndeveloper")
	require.NoError(t, err)
	assert.Equal(t, want, second)
	assert.Equal(t, 0.1, second)

	assert.NotEqual(t, pairKey("python\ndjango", "developer"), pairKey("python", "django\ndeveloper"))
}

func TestRemoteRejectsNaN(t *testing.T) {
	t.Parallel()

	p := NewRemote(&fakeScorer{score: math.NaN()}, Options{})
	_, err := p.Similarity(context.Background(), "cv", "job")
	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}

func TestRemoteCapsInFlightCalls(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{score: 0.5, hold: 20 * time.Millisecond}
	p := NewRemote(scorer, Options{MaxInFlight: 2, Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Similarity(context.Background(), "cv", string(rune('a'+i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 8, scorer.calls.Load())
	assert.LessOrEqual(t, scorer.peak.Load(), int32(2))
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	got, err := Disabled{}.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCosine(t *testing.T) {
	t.Parallel()

	got, err := Cosine([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	_, err = Cosine([]float64{1}, []float64{1, 2})
	require.Error(t, err)
}

func TestKeyIsContentHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("pair", "a\nb"), Key("pair", "a\nb"))
	assert.NotEqual(t, Key("pair", "a\nb"), Key("pair", "b\na"))
	assert.NotEqual(t, Key("pair", "a"), Key("emb", "a"))
}

func TestMemoryCacheDoesNotAlias(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache(time.Minute, time.Minute)
	vec := []float64{1, 2}
	c.Set(context.Background(), "k", vec)
	vec[0] = 99

	got, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, got)

	got[1] = 42
	again, _ := c.Get(context.Background(), "k")
	assert.Equal(t, []float64{1, 2}, again)
	assert.Equal(t, 1, c.Len())
}

func TestRedisAndTieredCache(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	shared := NewRedisCache(rdb, time.Minute, nil)

	_, ok := shared.Get(ctx, "missing")
	assert.False(t, ok)

	shared.Set(ctx, "k", []float64{0.25, 0.5})
	got, ok := shared.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.5}, got)
	assert.True(t, srv.TTL("k") > 0)

	local := NewMemoryCache(time.Minute, time.Minute)
	tiered := Tiered{L1: local, L2: shared}

	got, ok = tiered.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.5}, got)
	assert.Equal(t, 1, local.Len(), "shared hit back-fills the local cache")

	tiered.Set(ctx, "k2", []float64{1})
	_, ok = local.Get(ctx, "k2")
	assert.True(t, ok)
	_, ok = shared.Get(ctx, "k2")
	assert.True(t, ok)
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, srv.Set("k", "not-json"))

	_, ok := NewRedisCache(rdb, time.Minute, nil).Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestDialRedis(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	rdb, err := DialRedis(context.Background(), "redis://"+srv.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = DialRedis(context.Background(), "not a url")
	require.Error(t, err)
}
